package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Drives a running server through the first-source flows: a text source on
// one notebook, and a pdf whose file arrives in a later update on another.
// Both notebooks must exist, belong to SIM_USER_ID and still be pending.

type config struct {
	baseURL    string
	token      string
	textNote   string
	uploadNote string
}

func loadConfig() config {
	_ = godotenv.Load()

	cfg := config{
		baseURL:    getEnv("SIM_BASE_URL", "http://localhost:3000/api"),
		token:      os.Getenv("SIM_TOKEN"),
		textNote:   os.Getenv("SIM_TEXT_NOTEBOOK_ID"),
		uploadNote: os.Getenv("SIM_UPLOAD_NOTEBOOK_ID"),
	}

	if cfg.token == "" {
		userID := os.Getenv("SIM_USER_ID")
		secret := os.Getenv("JWT_SECRET")
		if userID == "" || secret == "" {
			color.Red("Set SIM_TOKEN, or SIM_USER_ID and JWT_SECRET")
			os.Exit(1)
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": userID,
			"exp":     time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(secret))
		if err != nil {
			color.Red("Failed to sign token: %v", err)
			os.Exit(1)
		}
		cfg.token = token
	}

	for _, id := range []string{cfg.textNote, cfg.uploadNote} {
		if _, err := uuid.Parse(id); err != nil {
			color.Red("SIM_TEXT_NOTEBOOK_ID and SIM_UPLOAD_NOTEBOOK_ID must be notebook UUIDs")
			os.Exit(1)
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func sendRequest(cfg config, method, path string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, cfg.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func step(cfg config, title, method, path string, body interface{}) []byte {
	color.Yellow("\n%s", title)
	start := time.Now()
	resp, raw, err := sendRequest(cfg, method, path, body)
	if err != nil {
		color.Red("Failed: %v", err)
		return nil
	}
	if resp.StatusCode >= 300 {
		color.Red("Status: %s (%v)", resp.Status, time.Since(start))
	} else {
		color.Green("Status: %s (%v)", resp.Status, time.Since(start))
	}
	prettyPrint(raw)
	return raw
}

func main() {
	cfg := loadConfig()
	color.Cyan("Source pipeline simulation against %s\n", cfg.baseURL)

	step(cfg, "1. Add text source (first source, should generate)", "POST", "/source/v1", map[string]interface{}{
		"notebook_id": cfg.textNote,
		"title":       "Meeting notes",
		"type":        "text",
		"content":     "Quarterly planning: ship the realtime sources panel.",
	})

	step(cfg, "2. Add a second text source (should not generate)", "POST", "/source/v1", map[string]interface{}{
		"notebook_id": cfg.textNote,
		"title":       "Follow-up",
		"type":        "text",
		"content":     "Action items.",
	})

	raw := step(cfg, "3. Add pdf source without file (should not generate yet)", "POST", "/source/v1", map[string]interface{}{
		"notebook_id": cfg.uploadNote,
		"title":       "paper.pdf",
		"type":        "pdf",
	})

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if raw == nil || json.Unmarshal(raw, &created) != nil || created.Data.ID == "" {
		color.Red("\n[SKIP] Upload step skipped (no source id returned)")
	} else {
		step(cfg, "4. Attach uploaded file (should generate)", "PATCH", "/source/v1/"+created.Data.ID, map[string]interface{}{
			"file_path":         cfg.uploadNote + "/paper.pdf",
			"file_size":         482113,
			"processing_status": "uploaded",
		})
	}

	step(cfg, "5. In-flight generations", "GET", "/generation/v1/in-flight", nil)
	step(cfg, "6. List text notebook sources", "GET", "/source/v1?notebook_id="+cfg.textNote, nil)

	color.Cyan("\nSimulation complete")
}
