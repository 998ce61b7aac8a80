// Package testservice implements the HTTP contract-test harness service: a small control-plane
// server that lets an external test runner create client instances against arbitrary
// configurations and drive them through evaluation/event commands.
package testservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/testservice/servicedef"
)

const clientsBasePath = "/clients/"
const clientPath = clientsBasePath + "{id}"

// clientVersion is reported to the harness via GET /; it has no connection to go.mod's own
// module version, since this service describes itself rather than a published package.
const clientVersion = "0.1.0"

var capabilities = []string{
	servicedef.CapabilityServerSide,
	servicedef.CapabilityStronglyTyped,
	servicedef.CapabilityAllFlagsWithReasons,
	servicedef.CapabilitySecureModeHash,
	servicedef.CapabilityServiceEndpoints,
	servicedef.CapabilityBigSegments,
}

// TestService is the contract-test harness's HTTP control plane: it creates and tracks
// SDKClientEntity instances by ID and dispatches commands to them.
type TestService struct {
	name          string
	Handler       http.Handler
	clients       map[string]*SDKClientEntity
	clientCounter int
	loggers       ldlog.Loggers
	lock          sync.Mutex
}

// HTTPStatusError is implemented by errors that know which HTTP status they should map to.
type HTTPStatusError interface {
	HTTPStatus() int
}

// BadRequestError reports a client-supplied request that could not be understood or satisfied.
type BadRequestError struct {
	Message string
}

func (e BadRequestError) Error() string {
	return e.Message
}

// HTTPStatus implements HTTPStatusError.
func (e BadRequestError) HTTPStatus() int {
	return http.StatusBadRequest
}

// NotFoundError reports a reference to a client ID that does not exist.
type NotFoundError struct{}

func (e NotFoundError) Error() string {
	return "not found"
}

// HTTPStatus implements HTTPStatusError.
func (e NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

// NewTestService creates a TestService and wires up its HTTP routes.
func NewTestService(loggers ldlog.Loggers, name string) *TestService {
	service := &TestService{
		name:    name,
		clients: make(map[string]*SDKClientEntity),
		loggers: loggers,
	}

	router := mux.NewRouter()

	router.HandleFunc("/", service.GetStatus).Methods("GET")
	router.HandleFunc("/", service.DeleteStopService).Methods("DELETE")
	router.HandleFunc("/", service.PostCreateClient).Methods("POST")
	router.HandleFunc(clientPath, service.DeleteClient).Methods("DELETE")
	router.HandleFunc(clientPath, service.PostCommand).Methods("POST")

	service.Handler = router
	return service
}

// GetStatus answers GET / with this service's name, capabilities, and version.
func (s *TestService) GetStatus(w http.ResponseWriter, r *http.Request) {
	rep := servicedef.StatusRep{
		Name:          s.name,
		Capabilities:  capabilities,
		ClientVersion: clientVersion,
	}
	writeJSON(w, rep)
}

// DeleteStopService answers DELETE / by terminating the process, as the harness expects.
func (s *TestService) DeleteStopService(w http.ResponseWriter, r *http.Request) {
	fmt.Println("Test service has told us to exit")
	os.Exit(0)
}

// PostCreateClient answers POST / by creating a new client instance and returning its ID in the
// Location header.
func (s *TestService) PostCreateClient(w http.ResponseWriter, r *http.Request) {
	var p servicedef.CreateInstanceParams
	if err := readJSON(r, &p); err != nil {
		writeError(w, err)
		return
	}

	loggers := s.loggers
	loggers.SetPrefix(fmt.Sprintf("[sdklog:%s] ", p.Tag))

	loggers.Info("Creating client instance")
	c, err := NewSDKClientEntity(p)
	if err != nil {
		writeError(w, err)
		return
	}

	s.lock.Lock()
	s.clientCounter++
	id := strconv.Itoa(s.clientCounter)
	s.clients[id] = c
	s.lock.Unlock()

	url := clientsBasePath + id
	w.Header().Set("Location", url)
	w.WriteHeader(http.StatusCreated)
}

// DeleteClient answers DELETE /clients/{id} by closing and forgetting that client instance.
func (s *TestService) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.lock.Lock()
	c := s.clients[id]
	if c != nil {
		delete(s.clients, id)
	}
	s.lock.Unlock()

	if c == nil {
		writeError(w, NotFoundError{})
		return
	}

	c.Close()

	w.WriteHeader(http.StatusAccepted)
}

// PostCommand answers POST /clients/{id} by dispatching the request body to that client instance.
func (s *TestService) PostCommand(w http.ResponseWriter, r *http.Request) {
	c, _, err := s.getClient(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var p servicedef.CommandParams
	if err := readJSON(r, &p); err != nil {
		writeError(w, err)
		return
	}
	result, err := c.DoCommand(p)
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusCreated)
	} else {
		writeJSON(w, result)
	}
}

func (s *TestService) getClient(r *http.Request) (*SDKClientEntity, string, error) {
	id := mux.Vars(r)["id"]
	s.lock.Lock()
	c := s.clients[id]
	s.lock.Unlock()
	if c != nil {
		return c, id, nil
	}
	return nil, "", NotFoundError{}
}

func readJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request has no body")
	}
	return json.NewDecoder(r.Body).Decode(dest)
}

func writeJSON(w http.ResponseWriter, rep interface{}) {
	data, _ := json.Marshal(rep)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := 500
	if hse, ok := err.(HTTPStatusError); ok {
		status = hse.HTTPStatus()
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}

// LogLevelFromName maps a log level name (as found in the LD_LOG_LEVEL environment variable) to
// an ldlog.LogLevel, defaulting to Debug for an unrecognized or empty name.
func LogLevelFromName(name string) ldlog.LogLevel {
	switch strings.ToLower(name) {
	case "info":
		return ldlog.Info
	case "warn":
		return ldlog.Warn
	case "error":
		return ldlog.Error
	}
	return ldlog.Debug
}
