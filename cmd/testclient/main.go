// Command testclient plays the browser extension against a running service:
// it reports a text box, starts capture and answers recognizer.start with a
// scripted utterance, printing every buffer update it receives.
package main

import (
	"flag"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"voice-scribe-service/internal/api/ws"
	"voice-scribe-service/internal/observability/logging"
)

func main() {
	addr := flag.String("server", "ws://localhost:8080/v1/dictation", "Dictation websocket URL")
	text := flag.String("text", "Notes: ", "Initial text box content")
	lang := flag.String("lang", "en-US", "Recognition language")
	script := flag.String("script", "testing|testing one|testing one two", "Pipe-separated results; the last one is final")
	interrupt := flag.Bool("interrupt", false, "Type a character before the final result")
	flag.Parse()

	logging.Init(logging.Config{Level: "debug", Format: "console"})

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatal().Err(err).Str("server", *addr).Msg("Failed to connect")
	}
	defer conn.Close()
	log.Info().Str("server", *addr).Msg("Connected")

	content := *text
	// Carets are UTF-16 code units, as in a browser text box.
	caret := len(utf16.Encode([]rune(content)))
	supported := true
	send(conn, ws.Envelope{Type: ws.TypeHello, Supported: &supported, Content: &content, Caret: &caret})

	results := strings.Split(*script, "|")
	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg ws.Envelope
		if err := conn.ReadJSON(&msg); err != nil {
			log.Fatal().Err(err).Msg("Read failed")
		}

		switch msg.Type {
		case ws.TypeReady:
			log.Info().Bool("supported", *msg.Supported).Int("languages", len(msg.Languages)).Msg("Ready")
			send(conn, ws.Envelope{Type: ws.TypeStart, Language: *lang})

		case ws.TypeRecognizerStart:
			log.Info().Str("sessionId", msg.SessionID).Str("language", msg.Language).Msg("Recognizer start requested")
			go play(conn, msg.SessionID, results, *interrupt)

		case ws.TypeContent:
			content = *msg.Content
			log.Info().Str("content", content).Msg("Content")

		case ws.TypeCaret:
			log.Info().Int("caret", *msg.Caret).Msg("Caret")

		case ws.TypeRecognizerStop:
			log.Info().Str("sessionId", msg.SessionID).Msg("Recognizer stop requested")

		case ws.TypeState:
			log.Info().Str("state", msg.State).Str("reason", msg.Reason).Msg("State")
			if msg.State == "inactive" {
				log.Info().Str("content", content).Msg("Done")
				return
			}

		case ws.TypeError:
			log.Warn().Str("reason", msg.Reason).Msg(msg.Message)
		}
	}
}

// play sends the scripted results. It shares the connection with the read
// loop; gorilla/websocket allows one concurrent reader and one writer.
func play(conn *websocket.Conn, sessionID string, results []string, interrupt bool) {
	for i, text := range results {
		final := i == len(results)-1
		if final && interrupt {
			edited := text + "!"
			send(conn, ws.Envelope{Type: ws.TypeEdit, Kind: "key", Content: &edited})
		}
		send(conn, ws.Envelope{Type: ws.TypeResult, SessionID: sessionID, Text: text, IsFinal: final})
		time.Sleep(300 * time.Millisecond)
	}
	send(conn, ws.Envelope{Type: ws.TypeEnd, SessionID: sessionID})
}

func send(conn *websocket.Conn, msg ws.Envelope) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Write failed")
	}
}
