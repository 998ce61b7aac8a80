// Command testservice runs the contract-test harness's HTTP control-plane service.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/testservice"
)

func getenv(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

func main() {
	loggers := ldlog.NewDefaultLoggers()
	loggers.SetMinLevel(testservice.LogLevelFromName(os.Getenv("LD_LOG_LEVEL")))

	port := getenv("PORT", "8000")
	service := testservice.NewTestService(loggers, "go-eval-engine")
	server := &http.Server{Handler: service.Handler, Addr: ":" + port}
	fmt.Printf("Listening on port %s\n", port)
	if err := server.ListenAndServe(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
