package homeassistant

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// fakeServer speaks just enough of the websocket API for the client tests:
// auth handshake, canned registry lists, and per-command failure injection.
type fakeServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	received  []map[string]any
	failTypes map[string]string
	// sendEvent interleaves an unrelated event frame before each result.
	sendEvent bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{failTypes: make(map[string]string)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeServer) commands() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.received...)
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "auth_required"}); err != nil {
		return
	}
	var auth map[string]any
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth["access_token"] != testToken {
		conn.WriteJSON(map[string]any{"type": "auth_invalid"})
		return
	}
	if err := conn.WriteJSON(map[string]any{"type": "auth_ok"}); err != nil {
		return
	}

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, msg)
		f.mu.Unlock()

		id := msg["id"]
		typ, _ := msg["type"].(string)

		if f.sendEvent {
			conn.WriteJSON(map[string]any{"id": 0, "type": "event"})
		}
		if reason, ok := f.failTypes[typ]; ok {
			conn.WriteJSON(map[string]any{
				"id": id, "type": "result", "success": false,
				"error": map[string]any{"code": "invalid", "message": reason},
			})
			continue
		}
		conn.WriteJSON(map[string]any{"id": id, "type": "result", "success": true, "result": f.resultFor(typ, msg)})
	}
}

func (f *fakeServer) resultFor(typ string, msg map[string]any) any {
	switch typ {
	case "config/area_registry/list":
		return []map[string]any{{"area_id": "area-1", "name": "Living Room"}}
	case "config/device_registry/list":
		return []map[string]any{{"id": "dev-1", "area_id": "area-1", "name": "Hub"}}
	case "config/entity_registry/list":
		return []map[string]any{{"entity_id": "light.sofa", "device_id": "dev-1"}}
	case "get_states":
		return []map[string]any{{
			"entity_id": "light.sofa", "state": "on",
			"attributes": map[string]any{"friendly_name": "Sofa"},
		}}
	case "config/area_registry/create":
		return map[string]any{"area_id": "area-new", "name": msg["name"]}
	default:
		return nil
	}
}

func dialTest(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	client, err := Dial(t.Context(), f.url(), testToken)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDialRejectsBadToken(t *testing.T) {
	f := newFakeServer(t)
	_, err := Dial(t.Context(), f.url(), "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication rejected")
}

func TestFetchAll(t *testing.T) {
	client := dialTest(t, newFakeServer(t))

	dump, err := client.FetchAll(t.Context())
	require.NoError(t, err)
	require.Len(t, dump.Areas, 1)
	assert.Equal(t, "area-1", dump.Areas[0].ID)
	assert.Equal(t, "Living Room", dump.Areas[0].Name)
	require.Len(t, dump.Devices, 1)
	assert.Equal(t, "area-1", dump.Devices[0].AreaID)
	require.Len(t, dump.Entities, 1)
	assert.Equal(t, "light.sofa", dump.Entities[0].ID)
	require.Len(t, dump.States, 1)
	assert.Equal(t, "on", dump.States[0].State)
	assert.Equal(t, "Sofa", dump.States[0].FriendlyName)
}

func TestCallSkipsEventFrames(t *testing.T) {
	f := newFakeServer(t)
	f.sendEvent = true
	client := dialTest(t, f)

	area, err := client.GetArea(t.Context(), "area-1")
	require.NoError(t, err)
	require.NotNil(t, area)
	assert.Equal(t, "Living Room", area.Name)
}

func TestCommandFailureSurfacesServerError(t *testing.T) {
	f := newFakeServer(t)
	f.failTypes["config/entity_registry/update"] = "entity not found"
	client := dialTest(t, f)

	err := client.SetEntityArea(t.Context(), "light.gone", "area-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity not found")
}

func TestSetEntityAreaClearsWithNull(t *testing.T) {
	f := newFakeServer(t)
	client := dialTest(t, f)

	require.NoError(t, client.SetEntityArea(t.Context(), "light.sofa", ""))

	cmds := f.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "config/entity_registry/update", cmds[0]["type"])
	v, ok := cmds[0]["area_id"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestCreateAreaReturnsNewID(t *testing.T) {
	client := dialTest(t, newFakeServer(t))

	id, err := client.CreateArea(t.Context(), "Unsorted")
	require.NoError(t, err)
	assert.Equal(t, "area-new", id)
}

func TestLookupsReturnNilWhenAbsent(t *testing.T) {
	client := dialTest(t, newFakeServer(t))

	e, err := client.GetEntity(t.Context(), "light.nope")
	require.NoError(t, err)
	assert.Nil(t, e)

	a, err := client.FindAreaByName(t.Context(), "Attic")
	require.NoError(t, err)
	assert.Nil(t, a)

	d, err := client.GetDevice(t.Context(), "dev-nope")
	require.NoError(t, err)
	assert.Nil(t, d)
}
