// Command smoke probes a running grievance API instance against a JSON
// checklist of endpoints and exits non-zero when a critical probe fails.
// Intended for post-deploy verification:
//
//	go run ./scripts/smoke -base https://grievance.example.edu -checks scripts/smoke/checks.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type check struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	WantStatus int    `json:"want_status"`
	Authed     bool   `json:"authed"`
	Critical   bool   `json:"critical"`
}

type checklist struct {
	Checks []check `json:"checks"`
}

type probe struct {
	Check    check
	Status   int
	Pass     bool
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base       string
		checksPath string
		token      string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&checksPath, "checks", filepath.Join("scripts", "smoke", "checks.json"), "Path to JSON checklist")
	flag.StringVar(&token, "token", "", "Bearer token for authed checks")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	checks, err := loadChecks(checksPath)
	if err != nil {
		log.Fatalf("failed to load checklist: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		probes   []probe
		breaking int
		warnings int
	)

	for _, ck := range checks {
		if ck.Authed && token == "" {
			probes = append(probes, probe{Check: ck, Err: fmt.Errorf("authed check skipped: no -token given")})
			if ck.Critical {
				breaking++
			} else {
				warnings++
			}
			continue
		}
		p := runCheck(client, base, token, ck)
		if !p.Pass {
			if ck.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Critical failures: %d, Warnings: %d\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadChecks(path string) ([]check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list checklist
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if len(list.Checks) == 0 {
		return nil, fmt.Errorf("no checks defined in %s", path)
	}
	return list.Checks, nil
}

func runCheck(client *http.Client, base, token string, ck check) probe {
	p := probe{Check: ck}

	method := strings.ToUpper(strings.TrimSpace(ck.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := ck.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		p.Err = err
		return p
	}
	if ck.Authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Err = err
		return p
	}
	defer resp.Body.Close()

	p.Status = resp.StatusCode
	want := ck.WantStatus
	if want == 0 {
		want = http.StatusOK
	}
	p.Pass = p.Status == want
	return p
}

func printReport(probes []probe) {
	for _, p := range probes {
		label := "ok"
		if p.Err != nil {
			label = "error"
		} else if !p.Pass {
			label = "FAIL"
		}
		method := p.Check.Method
		if method == "" {
			method = http.MethodGet
		}
		if p.Err != nil {
			fmt.Printf("%-5s %-6s %-40s %v\n", label, method, p.Check.Path, p.Err)
			continue
		}
		fmt.Printf("%-5s %-6s %-40s status=%d (%s)\n", label, method, p.Check.Path, p.Status, p.Duration.Round(time.Millisecond))
	}
}
