package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/auth"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/match"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	authn, err := auth.NewAuthenticator(time.Hour)
	require.NoError(t, err)
	repo := database.NewMemoryRepository()
	store := match.NewStore(match.Options{Repo: repo, Logger: logger})
	t.Cleanup(store.Close)

	srv := &Server{Store: store, Repo: repo, Auth: authn, Logger: logger}
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// registerAndLogin creates a user and returns their token.
func registerAndLogin(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/user/create", "", map[string]string{"email": email, "password": "hunter2", "username": "u"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/user/login", "", map[string]string{"email": email, "password": "hunter2"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, out.Token, cookie.Value)
	return out.Token
}

func createMatch(t *testing.T, ts *httptest.Server, token string, body map[string]interface{}) uuid.UUID {
	t.Helper()
	resp := postJSON(t, ts.URL+"/match/create", token, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out createMatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.ID
}

func TestUserCreateAndLogin(t *testing.T) {
	ts := newTestServer(t)
	registerAndLogin(t, ts, "a@linot.io")

	resp := postJSON(t, ts.URL+"/user/create", "", map[string]string{"email": "a@linot.io", "password": "x"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/user/login", "", map[string]string{"email": "a@linot.io", "password": "wrong"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/user/create", "", map[string]string{"email": "", "password": "x"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateMatchValidation(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "host@linot.io")

	resp := postJSON(t, ts.URL+"/match/create", "", map[string]interface{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/match/create", token, map[string]interface{}{"max_players": 13})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/match/create", token, map[string]interface{}{"strict_mode": "yes"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	id := createMatch(t, ts, token, map[string]interface{}{"max_players": 4, "strict_mode": true})

	list := get(t, ts.URL+"/match/list?status=waiting", "")
	defer list.Body.Close()
	require.Equal(t, http.StatusOK, list.StatusCode)
	var summaries []map[string]interface{}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, id.String(), summaries[0]["id"])

	bad := get(t, ts.URL+"/match/list?status=bogus", "")
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestViewAndDebugAccess(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "host@linot.io")
	id := createMatch(t, ts, token, nil)

	resp := get(t, ts.URL+"/match/view/"+id.String(), token)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "creator has not joined yet")

	resp = get(t, ts.URL+"/match/view/"+uuid.NewString(), token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = get(t, ts.URL+"/match/view/not-a-uuid", token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, ts.URL+"/match/debug/"+id.String(), token)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "debug view is closed while the match runs")
}

type wsMessage struct {
	Type    string          `json:"type"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	State   game.PlayerView `json:"state"`
}

func dialMatch(t *testing.T, ts *httptest.Server, id uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/match/ws/" + id.String()
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, v interface{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

// readUntil discards messages until one matches.
func readUntil(t *testing.T, c *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg wsMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func TestMatchWebsocketFlow(t *testing.T) {
	ts := newTestServer(t)
	hostToken := registerAndLogin(t, ts, "host@linot.io")
	guestToken := registerAndLogin(t, ts, "guest@linot.io")
	id := createMatch(t, ts, hostToken, nil)

	host := dialMatch(t, ts, id, hostToken)
	send(t, host, map[string]string{"type": "join_match", "nickname": "host"})
	joined := readUntil(t, host, func(m wsMessage) bool { return m.Type == "private_sync_state" })
	assert.Equal(t, 0, joined.State.MyIndex)
	assert.Equal(t, game.StatusWaiting, joined.State.Status)

	guest := dialMatch(t, ts, id, guestToken)
	send(t, guest, map[string]string{"type": "join_match", "nickname": "guest"})
	readUntil(t, guest, func(m wsMessage) bool { return m.Type == "private_sync_state" && m.State.MyIndex == 1 })

	send(t, guest, map[string]string{"type": "start_match"})
	rejected := readUntil(t, guest, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "only_host_can_start", rejected.Code)

	send(t, host, map[string]string{"type": "start_match"})
	started := readUntil(t, guest, func(m wsMessage) bool {
		return m.Type == "private_sync_state" && m.State.Status == game.StatusInProgress
	})
	assert.Len(t, started.State.MyCards, game.HandSize)
	require.Len(t, started.State.Opponents, 1)
	assert.Equal(t, game.HandSize, started.State.Opponents[0].CardCount)
	require.NotNil(t, started.State.TopCard)

	send(t, guest, map[string]string{"type": "draw_card"})
	notTurn := readUntil(t, guest, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "not_your_turn", notTurn.Code)

	send(t, guest, map[string]string{"type": "ping"})
	readUntil(t, guest, func(m wsMessage) bool { return m.Type == "pong" })

	send(t, guest, map[string]string{"type": "shuffle_everything"})
	unknown := readUntil(t, guest, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "unknown_operation", unknown.Code)

	require.NoError(t, guest.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	invalid := readUntil(t, guest, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "invalid_message", invalid.Code)

	send(t, guest, map[string]string{"type": "place_bet"})
	bet := readUntil(t, guest, func(m wsMessage) bool { return m.Type == "error" })
	assert.Equal(t, "betting_not_implemented", bet.Code)

	send(t, guest, map[string]string{"type": "leave_match"})
	done := readUntil(t, host, func(m wsMessage) bool {
		return m.Type == "private_sync_state" && m.State.Status == game.StatusFinished
	})
	require.NotNil(t, done.State.WinnerIndex)
	assert.Equal(t, 0, *done.State.WinnerIndex)

	resp := get(t, ts.URL+"/match/debug/"+id.String(), hostToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var debug game.DebugView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&debug))
	assert.Len(t, debug.Players, 2)
}

func TestWebsocketRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts, "host@linot.io")
	id := createMatch(t, ts, token, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/match/ws/" + id.String()
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
