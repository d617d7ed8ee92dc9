package obs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSalt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	testChallenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="
)

// fakeOBS is a minimal obs-websocket v5 server.
type fakeOBS struct {
	t        *testing.T
	password string
	handle   func(req request) requestResponse

	mu       sync.Mutex
	requests []request
	conns    []*websocket.Conn
}

func (f *fakeOBS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}

	ws, err := upgrader.Upgrade(w, r, nil)
	if !assert.NoError(f.t, err) {
		return
	}
	defer ws.Close()

	f.mu.Lock()
	f.conns = append(f.conns, ws)
	f.mu.Unlock()

	h := hello{ObsWebSocketVersion: "5.5.0", RPCVersion: rpcVersion}
	if f.password != "" {
		h.Authentication = &struct {
			Challenge string `json:"challenge"`
			Salt      string `json:"salt"`
		}{Challenge: testChallenge, Salt: testSalt}
	}

	if writeOp(ws, opHello, h) != nil {
		return
	}

	var ident identify
	if readOp(ws, opIdentify, &ident) != nil {
		return
	}

	if f.password != "" && ident.Authentication != authResponse(f.password, testSalt, testChallenge) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeAuthenticationFailed, "Authentication failed."))

		return
	}

	if writeOp(ws, opIdentified, identified{NegotiatedRPCVersion: rpcVersion}) != nil {
		return
	}

	for {
		var req request
		if readOp(ws, opRequest, &req) != nil {
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		resp := requestResponse{RequestStatus: requestStatus{Result: true, Code: 100}}
		if f.handle != nil {
			resp = f.handle(req)
		}

		resp.RequestType = req.RequestType
		resp.RequestID = req.RequestID

		if writeOp(ws, opRequestResponse, resp) != nil {
			return
		}
	}
}

func (f *fakeOBS) received() []request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]request(nil), f.requests...)
}

func (f *fakeOBS) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ws := range f.conns {
		_ = ws.Close()
	}
}

func startFakeOBS(t *testing.T, f *fakeOBS) Config {
	t.Helper()

	f.t = t
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	cfg := Config{
		Enabled:           true,
		Address:           strings.TrimPrefix(server.URL, "http://"),
		Password:          f.password,
		RequestTimeout:    time.Second,
		ReconnectInterval: time.Second,
	}
	require.NoError(t, cfg.Validate())

	return cfg
}

func newTestClient(cfg Config) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return New(logger, cfg)
}

func decodeData(t *testing.T, req request) map[string]any {
	t.Helper()

	raw, err := json.Marshal(req.RequestData)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))

	return data
}

func TestAuthResponse(t *testing.T) {
	// Stable for fixed inputs and sensitive to every part.
	base := authResponse("supersecret", testSalt, testChallenge)
	assert.Equal(t, base, authResponse("supersecret", testSalt, testChallenge))
	assert.NotEqual(t, base, authResponse("other", testSalt, testChallenge))
	assert.NotEqual(t, base, authResponse("supersecret", "salt", testChallenge))
	assert.NotEqual(t, base, authResponse("supersecret", testSalt, "challenge"))
	assert.Len(t, base, 44)
}

func TestClient_Connect(t *testing.T) {
	tests := []struct {
		name           string
		serverPassword string
		clientPassword string
		expectErr      error
	}{
		{name: "no authentication"},
		{name: "correct password", serverPassword: "supersecret", clientPassword: "supersecret"},
		{name: "wrong password", serverPassword: "supersecret", clientPassword: "nope", expectErr: ErrAuthFailed},
		{name: "missing password", serverPassword: "supersecret", expectErr: ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := startFakeOBS(t, &fakeOBS{password: tt.serverPassword})
			cfg.Password = tt.clientPassword

			client := newTestClient(cfg)
			defer client.Close()

			err := client.Connect(context.Background())
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				assert.False(t, client.Connected())

				return
			}

			require.NoError(t, err)
			assert.True(t, client.Connected())
		})
	}
}

func TestClient_RequestNotConnected(t *testing.T) {
	client := newTestClient(Config{RequestTimeout: time.Second})

	_, err := client.Request(context.Background(), "GetVersion", nil)
	require.ErrorIs(t, err, ErrNotConnected)

	require.ErrorIs(t, client.SetText(context.Background(), "Exits", "Exits: 1"), ErrNotConnected)
}

func TestClient_SetText(t *testing.T) {
	fake := &fakeOBS{}
	client := newTestClient(startFakeOBS(t, fake))
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.SetText(context.Background(), "Exit Counter", "Exits: 3/96"))

	reqs := fake.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "SetInputSettings", reqs[0].RequestType)
	assert.NotEmpty(t, reqs[0].RequestID)

	data := decodeData(t, reqs[0])
	assert.Equal(t, "Exit Counter", data["inputName"])
	assert.Equal(t, true, data["overlay"])
	assert.Equal(t, map[string]any{"text": "Exits: 3/96"}, data["inputSettings"])
}

func TestClient_RefreshBrowser(t *testing.T) {
	fake := &fakeOBS{}
	client := newTestClient(startFakeOBS(t, fake))
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.RefreshBrowser(context.Background(), "Game Panel"))

	reqs := fake.received()
	require.Len(t, reqs, 1)
	assert.Equal(t, "PressInputPropertiesButton", reqs[0].RequestType)
	assert.Equal(t, map[string]any{"inputName": "Game Panel", "propertyName": "refreshnocache"}, decodeData(t, reqs[0]))
}

func TestClient_RequestError(t *testing.T) {
	fake := &fakeOBS{
		handle: func(_ request) requestResponse {
			return requestResponse{RequestStatus: requestStatus{
				Result:  false,
				Code:    600,
				Comment: "No source was found by the name of `Missing`.",
			}}
		},
	}

	client := newTestClient(startFakeOBS(t, fake))
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))

	err := client.SetText(context.Background(), "Missing", "x")
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 600, reqErr.Code)
	assert.Equal(t, "SetInputSettings", reqErr.RequestType)
	assert.Contains(t, err.Error(), "Missing")
}

func TestClient_ListInputs(t *testing.T) {
	fake := &fakeOBS{
		handle: func(_ request) requestResponse {
			return requestResponse{
				RequestStatus: requestStatus{Result: true, Code: 100},
				ResponseData: json.RawMessage(`{"inputs":[
					{"inputName":"Exit Counter","inputKind":"text_gdiplus_v2","unversionedInputKind":"text_gdiplus"},
					{"inputName":"Linux Text","inputKind":"text_ft2_source_v2","unversionedInputKind":"text_ft2_source"},
					{"inputName":"Game Panel","inputKind":"browser_source","unversionedInputKind":"browser_source"},
					{"inputName":"Mic","inputKind":"wasapi_input_capture","unversionedInputKind":"wasapi_input_capture"}
				]}`),
			}
		},
	}

	client := newTestClient(startFakeOBS(t, fake))
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))

	tests := []struct {
		name     string
		kinds    []string
		expected []string
	}{
		{name: "text sources", kinds: TextInputKinds, expected: []string{"Exit Counter", "Linux Text"}},
		{name: "browser sources", kinds: BrowserInputKinds, expected: []string{"Game Panel"}},
		{name: "all inputs", expected: []string{"Exit Counter", "Linux Text", "Game Panel", "Mic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs, err := client.ListInputs(context.Background(), tt.kinds...)
			require.NoError(t, err)

			names := make([]string, 0, len(inputs))
			for _, in := range inputs {
				names = append(names, in.Name)
			}

			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestClient_RequestTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	fake := &fakeOBS{
		handle: func(_ request) requestResponse {
			<-block

			return requestResponse{RequestStatus: requestStatus{Result: true}}
		},
	}

	cfg := startFakeOBS(t, fake)
	cfg.RequestTimeout = 100 * time.Millisecond

	client := newTestClient(cfg)
	defer client.Close()

	require.NoError(t, client.Connect(context.Background()))

	_, err := client.Request(context.Background(), "GetVersion", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_OnConnectAndReconnect(t *testing.T) {
	fake := &fakeOBS{}
	cfg := startFakeOBS(t, fake)

	client := newTestClient(cfg)

	var (
		mu       sync.Mutex
		connects int
	)

	client.OnConnect(func(_ context.Context) {
		mu.Lock()
		connects++
		mu.Unlock()
	})

	count := func() int {
		mu.Lock()
		defer mu.Unlock()

		return connects
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	go func() {
		defer close(done)
		client.Run(ctx)
	}()

	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 10*time.Millisecond)

	fake.dropAll()

	require.Eventually(t, func() bool { return !client.Connected() }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return count() == 2 && client.Connected() }, 3*time.Second, 20*time.Millisecond)

	cancel()
	<-done

	assert.False(t, client.Connected())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReconnectInterval)

	cfg = Config{RequestTimeout: time.Millisecond}
	require.Error(t, cfg.Validate())

	cfg = Config{ReconnectInterval: 10 * time.Millisecond}
	require.Error(t, cfg.Validate())
}
