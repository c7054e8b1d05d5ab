// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/simplon-foundation/simplon/lib/netutil"
	"github.com/simplon-foundation/simplon/lib/testutil"
)

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name    string
		options Options
	}{
		{"missing host", Options{APIVersion: "1.8.0"}},
		{"missing version", Options{Host: "detector"}},
		{"port out of range", Options{Host: "detector", APIVersion: "1.8.0", Port: 70000}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := New(test.options); err == nil {
				t.Fatal("New succeeded")
			}
		})
	}

	client, err := New(Options{Host: "detector", APIVersion: "1.8.0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Address() != "detector:80" {
		t.Errorf("Address = %q, want detector:80", client.Address())
	}
	if len(client.pool.slots) != DefaultPoolSize {
		t.Errorf("pool size = %d, want %d", len(client.pool.slots), DefaultPoolSize)
	}
}

// The scripted reply declares exactly the body length it sends. A
// reply whose Content-Length overstates its body is not answered early:
// the client reads the declared length and fails with ErrTransport once
// the read deadline passes.
func TestGetValue(t *testing.T) {
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, `{"value": 0.5}`)}))
	client := server.client(t, nil)

	value, err := client.Get(context.Background(), DetectorConfig, "count_time", 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value.String() != "0.5" {
		t.Errorf("String() = %q, want 0.5", value.String())
	}
	if number, err := value.Float64(); err != nil || number != 0.5 {
		t.Errorf("Float64() = %v, %v; want 0.5", number, err)
	}

	requests := server.seen()
	if len(requests) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(requests))
	}
	request := requests[0]
	if request.Method != http.MethodGet || request.Path != "/detector/api/1.8.0/config/count_time" {
		t.Errorf("request = %s %s", request.Method, request.Path)
	}
	if got := request.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
	if got := request.Header.Get("Accept-Encoding"); got != "identity" {
		t.Errorf("Accept-Encoding = %q", got)
	}
}

func TestKeepAliveReusesConnection(t *testing.T) {
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, `{"value": "ready"}`)}))
	client := server.client(t, nil)

	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), DetectorStatus, "state", 0); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if got := server.connectionCount(); got != 1 {
		t.Errorf("server accepted %d connections, want 1", got)
	}
}

func TestConnectionCloseReconnects(t *testing.T) {
	server := newScriptedServer(t, always(reply{
		raw:    respond(http.StatusOK, `{"value": 0.5}`, "Connection: close"),
		hangup: true,
	}))
	client := server.client(t, nil)

	if _, err := client.Get(context.Background(), DetectorConfig, "count_time", 0); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if got := client.pool.connected(); got != 0 {
		t.Errorf("%d slots connected after Connection: close, want 0", got)
	}
	if _, err := client.Get(context.Background(), DetectorConfig, "count_time", 0); err != nil {
		t.Fatalf("second Get: %v", err)
	}

	requests := server.seen()
	if len(requests) != 2 || requests[0].Connection != 1 || requests[1].Connection != 2 {
		t.Fatalf("requests = %+v, want one on each of two connections", requests)
	}
}

func TestStaleConnectionResentOnce(t *testing.T) {
	// The server answers the first request and then closes the idle
	// connection without announcing it.
	server := newScriptedServer(t, always(reply{
		raw:    respond(http.StatusOK, `{"value": 1}`),
		hangup: true,
	}))
	client := server.client(t, nil)

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), DetectorConfig, "nimages", 0); err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
	}
	if got := server.connectionCount(); got != 2 {
		t.Errorf("server accepted %d connections, want 2", got)
	}
}

func TestRetryIsBounded(t *testing.T) {
	var count atomic.Int32
	server := newScriptedServer(t, func(received) reply {
		if count.Add(1) == 1 {
			return reply{raw: respond(http.StatusOK, `{"value": 1}`)}
		}
		return reply{hangup: true}
	})
	client := server.client(t, nil)

	if _, err := client.Get(context.Background(), DetectorConfig, "nimages", 0); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	_, err := client.Get(context.Background(), DetectorConfig, "nimages", 0)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Get error = %v, want ErrTransport", err)
	}
	if got := len(server.seen()); got != 3 {
		t.Errorf("server saw %d requests, want 3 (one, then one resend)", got)
	}
	if got := client.pool.slots[0].retries; got != 0 {
		t.Errorf("slot retry counter = %d after the call, want 0", got)
	}
}

func TestStatusErrorNotRetried(t *testing.T) {
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusInternalServerError, "detector fault")}))
	client := server.client(t, nil)

	_, err := client.Get(context.Background(), DetectorConfig, "count_time", 0)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Get error = %v, want *StatusError", err)
	}
	if statusErr.Code != http.StatusInternalServerError || statusErr.Body != "detector fault" {
		t.Errorf("StatusError = %+v", statusErr)
	}
	if statusErr.Path != "/detector/api/1.8.0/config/count_time" {
		t.Errorf("StatusError.Path = %q", statusErr.Path)
	}
	if got := len(server.seen()); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestBodyParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no value field", `{"val": 1}`},
		{"not json", `value = 1`},
		{"empty", ``},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, test.body)}))
			client := server.client(t, nil)
			if _, err := client.Get(context.Background(), DetectorConfig, "count_time", 0); !errors.Is(err, ErrBodyParse) {
				t.Fatalf("Get error = %v, want ErrBodyParse", err)
			}
		})
	}
}

func TestPoolExhaustion(t *testing.T) {
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	server := newScriptedServer(t, func(request received) reply {
		if request.Path == "/detector/api/1.8.0/command/wait" {
			arrived <- struct{}{}
			<-release
		}
		return reply{raw: respond(http.StatusOK, "")}
	})
	t.Cleanup(func() { close(release) })
	client := server.client(t, func(options *Options) { options.PoolSize = 1 })

	waitErr := make(chan error, 1)
	go func() { waitErr <- client.Wait(context.Background(), -1) }()
	testutil.RequireReceive(t, arrived, 5*time.Second, "waiting for the wait command to reach the server")

	start := time.Now()
	_, err := client.Get(context.Background(), DetectorStatus, "state", 0)
	if !errors.Is(err, ErrNoSocketAvailable) {
		t.Fatalf("Get error = %v, want ErrNoSocketAvailable", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Get blocked for %v on a busy pool", elapsed)
	}

	release <- struct{}{}
	if err := testutil.RequireReceive(t, waitErr, 5*time.Second, "waiting for the wait command"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestReceiveTimeout(t *testing.T) {
	block := make(chan struct{})
	server := newScriptedServer(t, func(received) reply {
		<-block
		return reply{}
	})
	t.Cleanup(func() { close(block) })
	client := server.client(t, nil)

	_, err := client.Get(context.Background(), DetectorConfig, "count_time", 50*time.Millisecond)
	if !errors.Is(err, ErrTransport) || !netutil.IsTimeout(err) {
		t.Fatalf("Get error = %v, want a transport timeout", err)
	}
	if !strings.Contains(err.Error(), "waiting for reply timed out") {
		t.Errorf("Get error = %q, want the stage marked as timed out", err)
	}
}

func TestContextCancelsUnboundedWait(t *testing.T) {
	block := make(chan struct{})
	server := newScriptedServer(t, func(received) reply {
		<-block
		return reply{}
	})
	t.Cleanup(func() { close(block) })
	client := server.client(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.Wait(ctx, -1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait error = %v, want context.DeadlineExceeded", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Errorf("cancellation reported as a transport failure: %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	server := newScriptedServer(t, always(reply{}))
	port := server.port()
	server.close()

	client, err := New(Options{Host: "127.0.0.1", Port: port, APIVersion: "1.8.0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()
	if _, err := client.Get(context.Background(), DetectorConfig, "count_time", 0); !errors.Is(err, ErrTransport) {
		t.Fatalf("Get error = %v, want ErrTransport", err)
	}
}

func TestClose(t *testing.T) {
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, `{"value": 1}`)}))
	client := server.client(t, nil)
	if _, err := client.Get(context.Background(), DetectorConfig, "nimages", 0); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := client.pool.connected(); got != 0 {
		t.Errorf("%d slots connected after Close", got)
	}
	if _, err := client.Get(context.Background(), DetectorConfig, "nimages", 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestPut(t *testing.T) {
	server := newScriptedServer(t, func(request received) reply {
		switch request.Path {
		case "/detector/api/1.8.0/config/count_time":
			return reply{raw: respond(http.StatusOK, `["count_time","frame_time"]`)}
		case "/detector/api/1.8.0/command/arm":
			return reply{raw: respond(http.StatusOK, `{"sequence id": 12}`)}
		default:
			return reply{raw: respond(http.StatusOK, "")}
		}
	})
	client := server.client(t, nil)
	ctx := context.Background()

	changed, err := client.Put(ctx, DetectorConfig, "count_time", 0.5, 0)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	names, ok := changed.ChangedParameters()
	if !ok {
		t.Fatalf("ChangedParameters not found in %s", changed)
	}
	if diff := cmp.Diff([]string{"count_time", "frame_time"}, names); diff != "" {
		t.Errorf("ChangedParameters mismatch (-want +got):\n%s", diff)
	}
	if _, ok := changed.SequenceID(); ok {
		t.Error("array reply reported a sequence id")
	}

	id, err := client.Arm(ctx)
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if id != 12 {
		t.Errorf("Arm sequence id = %d, want 12", id)
	}

	if err := client.Disarm(ctx); err != nil {
		t.Fatalf("Disarm: %v", err)
	}

	requests := server.seen()
	if len(requests) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(requests))
	}
	if got := string(requests[0].Body); got != `{"value":0.5}` {
		t.Errorf("Put body = %q", got)
	}
	if got := requests[0].Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Put Content-Type = %q", got)
	}
	for _, request := range requests[1:] {
		if request.Method != http.MethodPut || len(request.Body) != 0 || request.ContentLength != 0 {
			t.Errorf("command request = %s %s with %d byte body", request.Method, request.Path, len(request.Body))
		}
	}
	if requests[2].Path != "/detector/api/1.8.0/command/disarm" {
		t.Errorf("Disarm path = %q", requests[2].Path)
	}
}

func TestArmWithoutSequenceID(t *testing.T) {
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, "")}))
	client := server.client(t, nil)
	if _, err := client.Arm(context.Background()); !errors.Is(err, ErrBodyParse) {
		t.Fatalf("Arm error = %v, want ErrBodyParse", err)
	}
}

func TestCommandPaths(t *testing.T) {
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, `{"value": "1.8.0"}`)}))
	client := server.client(t, nil)
	ctx := context.Background()

	calls := []struct {
		path string
		call func() error
	}{
		{"/detector/api/1.8.0/command/initialize", func() error { return client.Initialize(ctx, -1) }},
		{"/detector/api/1.8.0/command/cancel", func() error { return client.Cancel(ctx) }},
		{"/detector/api/1.8.0/command/abort", func() error { return client.Abort(ctx) }},
		{"/detector/api/1.8.0/command/wait", func() error { return client.Wait(ctx, 0) }},
		{"/detector/api/1.8.0/command/status_update", func() error { return client.StatusUpdate(ctx) }},
		{"/system/api/1.8.0/command/restart", func() error { return client.Restart(ctx, 0) }},
		{"/filewriter/api/1.8.0/command/clear", func() error { return client.ClearFiles(ctx) }},
		{"/detector/api/version/", func() error {
			version, err := client.Version(ctx)
			if err == nil && version != "1.8.0" {
				t.Errorf("Version = %q, want 1.8.0", version)
			}
			return err
		}},
	}
	for i, call := range calls {
		if err := call.call(); err != nil {
			t.Fatalf("call %s: %v", call.path, err)
		}
		if got := server.seen()[i].Path; got != call.path {
			t.Errorf("call %d path = %q, want %q", i, got, call.path)
		}
	}
}

func TestDescribe(t *testing.T) {
	body := `{"value": 0.5, "value_type": "float", "access_mode": "rw", "unit": "s",
		"min": 3e-06, "max": 1800, "allowed_values": []}`
	server := newScriptedServer(t, always(reply{raw: respond(http.StatusOK, body)}))
	client := server.client(t, nil)

	parameter, err := client.Describe(context.Background(), DetectorConfig, "count_time", 0)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if parameter.ValueType != "float" || parameter.Unit != "s" || !parameter.Writable() {
		t.Errorf("parameter = %+v", parameter)
	}
	if upper, err := parameter.Max.Float64(); err != nil || upper != 1800 {
		t.Errorf("Max = %v, %v; want 1800", upper, err)
	}
	if parameter.Min.String() != "3e-06" {
		t.Errorf("Min = %q", parameter.Min.String())
	}
	if len(parameter.AllowedValues) != 0 {
		t.Errorf("AllowedValues = %v, want empty", parameter.AllowedValues)
	}
}
