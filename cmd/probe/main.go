// probe is a tiny exec-probe helper: a process supervisor invokes it and
// inspects the exit status. It queries the local health endpoint of the
// mounter (or consumer) and exits 0 only on a 2xx response.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	var (
		addr    = flag.String("addr", "http://127.0.0.1:8621", "base address of the health endpoint")
		mode    = flag.String("mode", "liveness", "probe mode: liveness or readiness")
		timeout = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	path := "/healthz"
	if *mode == "readiness" {
		path = "/readyz"
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*addr + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fmt.Fprintf(os.Stderr, "probe failed: %s returned %d\n", path, resp.StatusCode)
		os.Exit(1)
	}
}
