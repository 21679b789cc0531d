// Command loadtest drives a running chat server: it signs up throwaway
// users, opens a websocket per user and measures message fan-out.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	clients := flag.Int("clients", 2, "number of concurrent clients")
	messages := flag.Int("messages", 10, "messages each client sends")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := runClient(ctx, *baseURL, n, *messages, *clients); err != nil {
				log.Printf("client %d: %v", n, err)
			}
		}(i)
	}

	wg.Wait()
	log.Printf("done in %v", time.Since(start))
}

func runClient(ctx context.Context, baseURL string, n, messages, clients int) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	creds := map[string]string{
		"username": fmt.Sprintf("loadtest-%s", uuid.NewString()[:8]),
		"password": "loadtest-password",
	}
	body, _ := json.Marshal(creds)

	for _, endpoint := range []string{"/signup", "/login"} {
		res, err := httpClient.Post(baseURL+endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("POST %s: %w", endpoint, err)
		}
		res.Body.Close()
		if res.StatusCode >= 400 {
			return fmt.Errorf("POST %s: status %d", endpoint, res.StatusCode)
		}
	}

	conn, _, err := websocket.Dial(ctx, baseURL+"/ws", &websocket.DialOptions{
		HTTPClient: httpClient,
	})
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.CloseNow()

	// All clients broadcast to each other, so expect clients*messages live
	// frames on top of the history replay.
	want := clients * messages
	received := 0
	done := make(chan struct{})

	go func() {
		defer close(done)
		for received < want {
			_, p, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var frame model.Frame
			if err := json.Unmarshal(p, &frame); err != nil {
				continue
			}
			if frame.Type == model.FrameMessage {
				received++
			}
		}
	}()

	for i := 0; i < messages; i++ {
		frame := model.Frame{
			Type: model.FrameMessage,
			Text: fmt.Sprintf("message %d from client %d", i, n),
		}
		p, _ := json.Marshal(frame)
		if err := conn.Write(ctx, websocket.MessageText, p); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		// Stay under the per-client message rate limit.
		time.Sleep(2 * time.Second)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
	log.Printf("client %d received %d/%d messages", n, received, want)

	return conn.Close(websocket.StatusNormalClosure, "done")
}
