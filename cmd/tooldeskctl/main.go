package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tooldesk-io/tooldesk/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "tickets":
		cmdTickets(os.Args[2:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "chat":
		cmdChat(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: tooldeskctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdTickets(args []string) {
	fs := flag.NewFlagSet("tickets", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Max results")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Parse(args)

	body, err := apiGet(fmt.Sprintf("/admin-data?limit=%d", *limit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		fmt.Println(prettyJSON(body))
		return
	}

	var tickets []struct {
		ID               string  `json:"id"`
		ToolName         string  `json:"tool_name"`
		IssueDescription string  `json:"issue_description"`
		Priority         string  `json:"priority"`
		Channel          string  `json:"channel"`
		Timestamp        *string `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &tickets); err != nil {
		fmt.Fprintf(os.Stderr, "error: bad response: %v\n", err)
		os.Exit(1)
	}
	for _, t := range tickets {
		ts := "pending"
		if t.Timestamp != nil {
			ts = *t.Timestamp
		}
		fmt.Printf("%-24s %-8s %-10s %-20s %s\n", ts, t.Priority, t.Channel, t.ToolName, t.IssueDescription)
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	limit := fs.Int("limit", 100, "Max entries")
	level := fs.String("level", "", "Minimum level (DEBUG|INFO|WARN|ERROR)")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}
	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

// cmdChat drives the intake conversation from the terminal, mostly useful
// for smoke-testing a deployment without the web UI.
func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	sessionID := fs.String("session", "", "Session id (default: random)")
	message := fs.String("m", "", "Single message (omit for interactive)")
	fs.Parse(args)

	if *sessionID == "" {
		*sessionID = "ctl:" + uuid.NewString()
	}

	send := func(text string) {
		reply, err := apiChat(*sessionID, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(reply)
	}

	if *message != "" {
		send(*message)
		return
	}

	fmt.Printf("tooldeskctl chat (session %s, type 'quit' to exit)\n\n", *sessionID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		send(line)
		fmt.Println()
	}
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	req, err := http.NewRequest("GET", baseURL()+path, nil)
	if err != nil {
		return nil, err
	}
	return doRequest(req)
}

func apiChat(sessionID, message string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"session_id": sessionID,
		"message":    message,
	})
	req, err := http.NewRequest("POST", baseURL()+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := doRequest(req)
	if err != nil {
		return "", err
	}
	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("bad response: %w", err)
	}
	return resp.Reply, nil
}

func doRequest(req *http.Request) ([]byte, error) {
	if key := os.Getenv("TOOLDESK_ADMIN_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func baseURL() string {
	if v := os.Getenv("TOOLDESK_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func printUsage() {
	fmt.Println("tooldeskctl - tooldesk admin CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  tickets              List logged tickets (--limit, --json)")
	fmt.Println("  logs                 Tail recent daemon logs (--limit, --level)")
	fmt.Println("  chat                 Talk to the intake agent (--session, -m)")
	fmt.Println("  config validate <p>  Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TOOLDESK_API_URL     Daemon URL (default: http://localhost:8080)")
	fmt.Println("  TOOLDESK_ADMIN_KEY   Bearer key for admin endpoints")
}
