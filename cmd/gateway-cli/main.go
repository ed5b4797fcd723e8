package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talentbase/candidate-gateway/internal/poller"
	"github.com/talentbase/candidate-gateway/internal/store"
	"github.com/talentbase/candidate-gateway/shared/logger"
)

// gateway-cli dispatches an action through the gateway and waits for the
// external automation service to confirm it, mirroring what the registration
// form does in the browser.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "Gateway base URL")
	categoria := flag.String("categoria", "Cadastrar", "Action category to dispatch")
	data := flag.String("data", "{}", "Action data payload as inline JSON")
	requestID := flag.String("request-id", "", "Optional client-supplied correlation id")
	interval := flag.Duration("interval", time.Second, "Poll interval")
	budget := flag.Duration("budget", 30*time.Second, "Poll budget")
	flag.Parse()

	if !json.Valid([]byte(*data)) {
		return fmt.Errorf("-data must be valid JSON")
	}

	appLogger := logger.NewDefault()

	id, err := dispatch(*server, *categoria, json.RawMessage(*data), *requestID)
	if err != nil {
		return err
	}

	appLogger.Info("Action dispatched, waiting for confirmation",
		slog.String("request_id", id),
		slog.Duration("budget", *budget),
	)

	p := poller.New(
		poller.NewHTTPStatusReader(*server, 5*time.Second),
		poller.Config{Interval: *interval, Budget: *budget},
		appLogger.Logger,
	)

	result := p.Wait(context.Background(), id)
	switch result.Status {
	case store.StatusSuccess:
		fmt.Println("confirmed")
		if len(result.Data) > 0 {
			fmt.Println(string(result.Data))
		}
		return nil
	case store.StatusError:
		return fmt.Errorf("the automation service reported an error: %s", result.Message)
	default:
		return fmt.Errorf("no confirmation within %s; the action may still complete", *budget)
	}
}

// dispatch posts the action to the gateway and returns the correlation id.
func dispatch(server, categoria string, data json.RawMessage, requestID string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"categoria": categoria,
		"data":      data,
		"requestId": requestID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode dispatch body: %w", err)
	}

	url := strings.TrimSuffix(server, "/") + "/webhook"
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read dispatch response: %w", err)
	}

	var parsed struct {
		OK        bool   `json:"ok"`
		Error     string `json:"error"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode dispatch response: %w", err)
	}

	if !parsed.OK {
		// The pending record survives an upstream failure, so polling for
		// the returned id is still worthwhile when one came back.
		if parsed.RequestID != "" {
			return parsed.RequestID, nil
		}
		return "", fmt.Errorf("dispatch rejected: %s", parsed.Error)
	}
	if parsed.RequestID == "" {
		return "", fmt.Errorf("dispatch response carried no requestId")
	}
	return parsed.RequestID, nil
}
