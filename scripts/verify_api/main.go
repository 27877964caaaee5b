// Smoke-tests a running API service end to end: register, duplicate
// rejection, existence check, login outcomes, listing.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

var apiAddr string

func post(path string, body map[string]string) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	return http.Post(apiAddr+path, "application/json", bytes.NewReader(raw))
}

func check(name string, got, want int) {
	if got == want {
		fmt.Printf("PASS %s\n", name)
	} else {
		fmt.Printf("FAIL %s: status %d, want %d\n", name, got, want)
	}
}

func main() {
	flag.StringVar(&apiAddr, "api", "http://localhost:8081", "api service address")
	flag.Parse()

	// A fresh phone per run so the script can be re-run without dropping
	// the schema.
	phone := fmt.Sprintf("+1555%07d", time.Now().Unix()%10000000)

	resp, err := post("/api/auth/register", map[string]string{"phone": phone, "name": "Smoke Test", "password": "hunter2"})
	if err != nil {
		log.Fatalf("API unreachable: %v", err)
	}
	check("register new user", resp.StatusCode, http.StatusOK)
	resp.Body.Close()

	resp, _ = post("/api/auth/register", map[string]string{"phone": phone, "name": "Smoke Test", "password": "hunter2"})
	check("duplicate register rejected", resp.StatusCode, http.StatusBadRequest)
	resp.Body.Close()

	resp, _ = post("/api/auth/check", map[string]string{"phone": phone})
	check("check existing", resp.StatusCode, http.StatusOK)
	var exists struct {
		Exists bool `json:"exists"`
	}
	json.NewDecoder(resp.Body).Decode(&exists)
	resp.Body.Close()
	if exists.Exists {
		fmt.Println("PASS check reports exists=true")
	} else {
		fmt.Println("FAIL check reports exists=false")
	}

	resp, _ = post("/api/auth/login", map[string]string{"phone": phone, "password": "wrong"})
	check("wrong password rejected", resp.StatusCode, http.StatusUnauthorized)
	resp.Body.Close()

	resp, _ = post("/api/auth/login", map[string]string{"phone": "+10000000000", "password": "hunter2"})
	check("unknown phone rejected", resp.StatusCode, http.StatusNotFound)
	resp.Body.Close()

	resp, _ = post("/api/auth/login", map[string]string{"phone": phone, "password": "hunter2"})
	check("login", resp.StatusCode, http.StatusOK)
	resp.Body.Close()

	resp, err = http.Get(apiAddr + "/api/users")
	if err != nil {
		log.Fatal(err)
	}
	check("list users", resp.StatusCode, http.StatusOK)
	resp.Body.Close()

	resp, err = http.Get(apiAddr + "/api/messages/" + phone + "_+19999999999")
	if err != nil {
		log.Fatal(err)
	}
	check("list messages", resp.StatusCode, http.StatusOK)
	resp.Body.Close()
}
