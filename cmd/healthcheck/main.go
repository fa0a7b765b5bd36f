// Command healthcheck probes the local /health endpoint for container health checks.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("HEALTH_CHECK_PORT")
	if port == "" {
		port = "3000"
	}
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://localhost:"+port+"/health", nil)
	if err != nil {
		os.Exit(1)
	}
	resp, err := client.Do(req)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
