// Command test_integration drives a running server through a full card
// capture: upload, extract, save, duplicate save and list.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if u := os.Getenv("CARDLEADS_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")
	stamp := time.Now().Unix()

	fmt.Println("1. Uploading card...")
	var uploaded struct {
		CardImagePath string `json:"card_image_path"`
	}
	if !uploadCard(&uploaded) {
		fail("Upload card")
	}
	fmt.Println("PASSED: Upload card", uploaded.CardImagePath)

	fmt.Println("2. Extracting...")
	var extracted struct {
		Extracted       map[string]any `json:"extracted"`
		UncertainFields []string       `json:"uncertain_fields"`
		RawOCRText      string         `json:"raw_ocr_text"`
		Error           *string        `json:"error"`
	}
	if !sendRequest("POST", "/extract", map[string]string{"card_image_path": uploaded.CardImagePath}, http.StatusOK, &extracted) {
		fail("Extract")
	}
	if extracted.Error != nil {
		fmt.Println("Extraction degraded:", *extracted.Error)
	}
	fmt.Println("PASSED: Extract, uncertain:", extracted.UncertainFields)

	// A unique email keeps reruns against one store independent.
	draft := extracted.Extracted
	draft["email"] = fmt.Sprintf("smoke-%d@example.com", stamp)
	if draft["stage_id"] == nil {
		draft["stage_id"] = "prospecting"
	}
	payload := map[string]any{"lead": draft, "raw_ocr_text": extracted.RawOCRText}

	fmt.Println("3. Saving lead...")
	if !sendRequest("POST", "/leads", payload, http.StatusCreated, nil) {
		fail("Save lead")
	}
	fmt.Println("PASSED: Save lead")

	fmt.Println("4. Saving the same card again...")
	if !sendRequest("POST", "/leads", payload, http.StatusConflict, nil) {
		fail("Duplicate save")
	}
	fmt.Println("PASSED: Duplicate rejected")

	fmt.Println("5. Listing leads...")
	var listed struct {
		Leads []map[string]any `json:"leads"`
	}
	if !sendRequest("GET", "/leads?q="+fmt.Sprintf("smoke-%d", stamp), nil, http.StatusOK, &listed) {
		fail("List leads")
	}
	if len(listed.Leads) != 1 {
		fmt.Printf("expected 1 lead, got %d\n", len(listed.Leads))
		fail("List leads")
	}
	fmt.Println("PASSED: List leads")
}

func fail(step string) {
	fmt.Println("FAILED:", step)
	os.Exit(1)
}

func uploadCard(out any) bool {
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for x := 0; x < 64; x++ {
		img.Set(x, 18, color.Black)
	}
	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, img); err != nil {
		fmt.Printf("Error encoding card: %v\n", err)
		return false
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("card", "card.png")
	if err != nil {
		fmt.Printf("Error creating form: %v\n", err)
		return false
	}
	part.Write(imgBuf.Bytes())
	mw.Close()

	req, err := http.NewRequest("POST", baseURL()+"/cards", &body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(req, http.StatusCreated, out)
}

func sendRequest(method, endpoint string, payload any, want int, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL()+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, want, out)
}

func do(req *http.Request, want int, out any) bool {
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	fmt.Printf("Response: %s\n", string(respBody))

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
