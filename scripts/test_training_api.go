package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func decodeData(body []byte) map[string]interface{} {
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Data
}

func main() {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Println(cyan("=== Training API smoke test ==="))

	// 1. Start a session
	fmt.Println(cyan("\n[1] POST /training/v1/session"))
	resp, body, err := sendRequest("POST", "/training/v1/session", map[string]interface{}{
		"training_objective": "recover an overbooked reservation",
		"difficulty":         "intermediate",
		"category":           "overbooking",
	})
	if err != nil {
		fmt.Println(red("request failed:"), err)
		os.Exit(1)
	}
	fmt.Println("status:", resp.StatusCode)
	data := decodeData(body)
	prettyPrint(data)

	sessionID, _ := data["session_id"].(string)
	if sessionID == "" {
		fmt.Println(red("no session_id in response, aborting"))
		os.Exit(1)
	}
	fmt.Println(green("session started:"), sessionID)

	// 2. Respond a few turns
	turns := []string{
		"I completely acknowledge the problem with your reservation.",
		"I apologize sincerely for the inconvenience this has caused.",
		"Let me offer an alternative room, upgraded at no charge.",
		"I will confirm the resolution by email within the hour.",
	}
	for i, line := range turns {
		fmt.Println(cyan(fmt.Sprintf("\n[2.%d] POST /training/v1/session/%s/respond", i+1, sessionID)))
		resp, body, err = sendRequest("POST", "/training/v1/session/"+sessionID+"/respond", map[string]interface{}{
			"user_response": line,
		})
		if err != nil {
			fmt.Println(red("request failed:"), err)
			os.Exit(1)
		}
		fmt.Println("status:", resp.StatusCode)
		data = decodeData(body)
		prettyPrint(data)

		if status, _ := data["session_status"].(string); status == "complete" {
			fmt.Println(green("session completed at turn"), i+1)
			break
		}
	}

	// 3. Session status
	fmt.Println(cyan("\n[3] GET /training/v1/session/" + sessionID))
	resp, body, err = sendRequest("GET", "/training/v1/session/"+sessionID, nil)
	if err != nil {
		fmt.Println(red("request failed:"), err)
		os.Exit(1)
	}
	fmt.Println("status:", resp.StatusCode)
	prettyPrint(decodeData(body))

	// 4. Feedback
	fmt.Println(cyan("\n[4] GET /training/v1/session/" + sessionID + "/feedback"))
	resp, body, err = sendRequest("GET", "/training/v1/session/"+sessionID+"/feedback", nil)
	if err != nil {
		fmt.Println(red("request failed:"), err)
		os.Exit(1)
	}
	fmt.Println("status:", resp.StatusCode)
	prettyPrint(decodeData(body))

	// 5. Store stats
	fmt.Println(cyan("\n[5] GET /training/v1/sessions"))
	resp, body, err = sendRequest("GET", "/training/v1/sessions", nil)
	if err != nil {
		fmt.Println(red("request failed:"), err)
		os.Exit(1)
	}
	fmt.Println("status:", resp.StatusCode)
	prettyPrint(decodeData(body))

	fmt.Println(green("\nsmoke test finished"))
}
