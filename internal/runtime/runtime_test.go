package runtime

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// startEngine serves a fake engine API on a unix socket.
func startEngine(t *testing.T, handler http.Handler) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "docker.sock")
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen unix: %v", err)
	}
	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)
	return socket
}

func TestStatusAndRestart(t *testing.T) {
	t.Parallel()

	var restarted string
	socket := startEngine(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case request.URL.Path == "/containers/web/json":
			_, _ = writer.Write([]byte(`{"State":{"Status":"running"}}`))
		case request.URL.Path == "/containers/web/restart" && request.Method == http.MethodPost:
			restarted = request.URL.RawQuery
			writer.WriteHeader(http.StatusNoContent)
		default:
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"message":"no such container"}`))
		}
	}))

	client := NewDockerClient(socket, 30)
	status, err := client.Status(context.Background(), "web")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != "running" {
		t.Fatalf("unexpected status %q", status)
	}

	if err := client.Restart(context.Background(), "web"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if restarted != "t=30" {
		t.Fatalf("expected grace timeout query, got %q", restarted)
	}

	if _, err := client.Status(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTrimsNamePrefix(t *testing.T) {
	t.Parallel()

	socket := startEngine(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/containers/json" {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = writer.Write([]byte(`[{"Names":["/web"],"State":"running"},{"Names":["/db"],"State":"exited"}]`))
	}))

	client := NewDockerClient(socket, 30)
	containers, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(containers) != 2 || containers[0].Name != "web" || containers[1].Status != "exited" {
		t.Fatalf("unexpected listing %+v", containers)
	}
}

func TestEngineErrorSurfacesMessage(t *testing.T) {
	t.Parallel()

	socket := startEngine(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
		_, _ = writer.Write([]byte(`{"message":"driver failed"}`))
	}))

	client := NewDockerClient(socket, 30)
	err := client.Start(context.Background(), "web")
	if err == nil || err.Error() != "engine api status 500: driver failed" {
		t.Fatalf("unexpected error %v", err)
	}
}
