// Command client is a terminal chat client for manual testing against a
// running relay and API.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samvad-chat/samvad/pkg/chat"
	"github.com/samvad-chat/samvad/pkg/model"
)

type loginResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
	Message string      `json:"message"`
}

func login(apiAddr, phone, password string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"phone": phone, "password": password})
	resp, err := http.Post(apiAddr+"/api/auth/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}
	return lr.Token, nil
}

func send(c *websocket.Conn, name string, payload any) error {
	raw, err := json.Marshal(model.NewEvent(name, payload))
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, raw)
}

func printEvent(ev model.Event) {
	switch ev.Event {
	case model.EventChatHistory:
		var history []model.Message
		json.Unmarshal(ev.Data, &history)
		fmt.Printf("\r--- %d earlier messages ---\n", len(history))
		for _, m := range history {
			fmt.Printf("%s: %s [%s]\n", m.SenderID, m.Text, m.Status)
		}
		fmt.Print("> ")
	case model.EventMessage, model.EventNewMessage:
		var m model.Message
		json.Unmarshal(ev.Data, &m)
		fmt.Printf("\r%s: %s [%s]\n> ", m.SenderID, m.Text, m.Status)
	case model.EventStatus:
		var s model.StatusPayload
		json.Unmarshal(ev.Data, &s)
		fmt.Printf("\rmessage %d is now %s\n> ", s.MessageID, s.Status)
	case model.EventTyping:
		var ty model.TypingPayload
		json.Unmarshal(ev.Data, &ty)
		if ty.IsTyping {
			fmt.Printf("\r%s is typing...\n> ", ty.UserID)
		}
	case model.EventOnlineUsers:
		var roster []string
		json.Unmarshal(ev.Data, &roster)
		fmt.Printf("\ronline: %s\n> ", strings.Join(roster, ", "))
	}
}

func main() {
	relayAddr := flag.String("relay", "localhost:8080", "relay service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	user := flag.String("user", "", "your phone number")
	password := flag.String("password", "", "your password")
	peer := flag.String("peer", "", "phone number to chat with")
	flag.Parse()

	if *user == "" || *peer == "" {
		log.Fatal("both -user and -peer are required")
	}

	chatID, err := chat.New(*user, *peer)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Logging in as %s...", *user)
	token, err := login(*apiAddr, *user, *password)
	if err != nil {
		log.Fatal("Login failed: ", err)
	}

	u := url.URL{Scheme: "ws", Host: *relayAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial: ", err)
	}
	defer c.Close()

	if err := send(c, model.EventRegister, model.RegisterPayload{UserID: *user}); err != nil {
		log.Fatal("register: ", err)
	}
	if err := send(c, model.EventJoin, model.JoinPayload{ChatID: chatID.String(), UserID: *user}); err != nil {
		log.Fatal("join: ", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read: ", err)
				return
			}
			var ev model.Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				log.Printf("Received raw: %s", raw)
				continue
			}
			printEvent(ev)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			switch {
			case text == "":
			case text == "/quit":
				close(interrupt)
				return
			case text == "/typing":
				send(c, model.EventTyping, model.TypingPayload{ChatID: chatID.String(), UserID: *user, IsTyping: true})
			case text == "/read":
				send(c, model.EventRead, model.ReadPayload{ChatID: chatID.String(), UserID: *user})
			default:
				err := send(c, model.EventMessage, model.SubmitPayload{
					ChatID:   chatID.String(),
					SenderID: *user,
					Text:     text,
				})
				if err != nil {
					log.Println("write: ", err)
					return
				}
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			// Close handshake, then wait briefly for the server side.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close: ", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
