// Package homeassistant implements the registry client against the Home
// Assistant websocket API.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
)

// Client talks to a Home Assistant instance over its websocket API. It
// implements ports.RegistryClient. Commands are issued strictly one at a
// time; the id-correlated reply loop skips unrelated event frames.
type Client struct {
	conn *websocket.Conn

	mu  sync.Mutex
	seq int
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsMessage struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
}

// Dial connects and authenticates. The server opens with auth_required; the
// token answer must be the first client frame.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}

	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading server greeting: %w", err)
	}
	if hello.Type != "auth_required" {
		conn.Close()
		return nil, fmt.Errorf("unexpected greeting %q", hello.Type)
	}

	if err := conn.WriteJSON(map[string]any{"type": "auth", "access_token": token}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending auth: %w", err)
	}
	var reply wsMessage
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading auth reply: %w", err)
	}
	if reply.Type != "auth_ok" {
		conn.Close()
		return nil, fmt.Errorf("authentication rejected: %s", reply.Type)
	}

	return &Client{conn: conn}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends one command and waits for its id-matched result frame.
func (c *Client) call(ctx context.Context, payload map[string]any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	id := c.seq
	payload["id"] = id

	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("sending %v: %w", payload["type"], err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("reading reply to %v: %w", payload["type"], err)
		}
		if msg.ID != id || msg.Type != "result" {
			// Event frame or stale reply; not ours.
			continue
		}
		if msg.Success == nil || !*msg.Success {
			if msg.Error != nil {
				return fmt.Errorf("command %v failed: %s (%s)", payload["type"], msg.Error.Message, msg.Error.Code)
			}
			return fmt.Errorf("command %v failed", payload["type"])
		}
		if out != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, out); err != nil {
				return fmt.Errorf("decoding result of %v: %w", payload["type"], err)
			}
		}
		return nil
	}
}

type stateRow struct {
	EntityID   string `json:"entity_id"`
	State      string `json:"state"`
	Attributes struct {
		FriendlyName string `json:"friendly_name"`
	} `json:"attributes"`
}

func (c *Client) listAreas(ctx context.Context) ([]entities.Area, error) {
	var areas []entities.Area
	err := c.call(ctx, map[string]any{"type": "config/area_registry/list"}, &areas)
	return areas, err
}

func (c *Client) listDevices(ctx context.Context) ([]entities.Device, error) {
	var devices []entities.Device
	err := c.call(ctx, map[string]any{"type": "config/device_registry/list"}, &devices)
	return devices, err
}

func (c *Client) listEntities(ctx context.Context) ([]entities.Entity, error) {
	var ents []entities.Entity
	err := c.call(ctx, map[string]any{"type": "config/entity_registry/list"}, &ents)
	return ents, err
}

// FetchAll reads the three registries plus the current states.
func (c *Client) FetchAll(ctx context.Context) (*ports.RegistryDump, error) {
	areas, err := c.listAreas(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := c.listDevices(ctx)
	if err != nil {
		return nil, err
	}
	ents, err := c.listEntities(ctx)
	if err != nil {
		return nil, err
	}
	var rows []stateRow
	if err := c.call(ctx, map[string]any{"type": "get_states"}, &rows); err != nil {
		return nil, err
	}
	states := make([]entities.EntityState, 0, len(rows))
	for _, r := range rows {
		states = append(states, entities.EntityState{
			EntityID:     r.EntityID,
			State:        r.State,
			FriendlyName: r.Attributes.FriendlyName,
		})
	}
	return &ports.RegistryDump{Areas: areas, Devices: devices, Entities: ents, States: states}, nil
}

// GetEntity returns the current registry entry for an entity, or nil.
func (c *Client) GetEntity(ctx context.Context, entityID string) (*entities.Entity, error) {
	ents, err := c.listEntities(ctx)
	if err != nil {
		return nil, err
	}
	for i := range ents {
		if ents[i].ID == entityID {
			return &ents[i], nil
		}
	}
	return nil, nil
}

// GetDevice returns the current registry entry for a device, or nil.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*entities.Device, error) {
	devices, err := c.listDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].ID == deviceID {
			return &devices[i], nil
		}
	}
	return nil, nil
}

// GetArea returns an area by id, or nil.
func (c *Client) GetArea(ctx context.Context, areaID string) (*entities.Area, error) {
	areas, err := c.listAreas(ctx)
	if err != nil {
		return nil, err
	}
	for i := range areas {
		if areas[i].ID == areaID {
			return &areas[i], nil
		}
	}
	return nil, nil
}

// FindAreaByName returns an area by exact name, or nil.
func (c *Client) FindAreaByName(ctx context.Context, name string) (*entities.Area, error) {
	areas, err := c.listAreas(ctx)
	if err != nil {
		return nil, err
	}
	for i := range areas {
		if areas[i].Name == name {
			return &areas[i], nil
		}
	}
	return nil, nil
}

// nullable maps an empty string to JSON null, which is how the registry API
// clears a field.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SetEntityArea assigns an entity to an area; an empty id clears it.
func (c *Client) SetEntityArea(ctx context.Context, entityID, areaID string) error {
	return c.call(ctx, map[string]any{
		"type":      "config/entity_registry/update",
		"entity_id": entityID,
		"area_id":   nullable(areaID),
	}, nil)
}

// ClearEntityDevice detaches an entity from its device reference.
func (c *Client) ClearEntityDevice(ctx context.Context, entityID string) error {
	return c.call(ctx, map[string]any{
		"type":      "config/entity_registry/update",
		"entity_id": entityID,
		"device_id": nil,
	}, nil)
}

// SetDeviceArea assigns a device to an area.
func (c *Client) SetDeviceArea(ctx context.Context, deviceID, areaID string) error {
	return c.call(ctx, map[string]any{
		"type":      "config/device_registry/update",
		"device_id": deviceID,
		"area_id":   nullable(areaID),
	}, nil)
}

// RenameEntity sets an entity's name.
func (c *Client) RenameEntity(ctx context.Context, entityID, name string) error {
	return c.call(ctx, map[string]any{
		"type":      "config/entity_registry/update",
		"entity_id": entityID,
		"name":      nullable(name),
	}, nil)
}

// RenameDevice sets a device's user-assigned name.
func (c *Client) RenameDevice(ctx context.Context, deviceID, name string) error {
	return c.call(ctx, map[string]any{
		"type":         "config/device_registry/update",
		"device_id":    deviceID,
		"name_by_user": nullable(name),
	}, nil)
}

// RenameArea sets an area's name.
func (c *Client) RenameArea(ctx context.Context, areaID, name string) error {
	return c.call(ctx, map[string]any{
		"type":    "config/area_registry/update",
		"area_id": areaID,
		"name":    name,
	}, nil)
}

// CreateArea creates a new area and returns its id.
func (c *Client) CreateArea(ctx context.Context, name string) (string, error) {
	var created entities.Area
	if err := c.call(ctx, map[string]any{
		"type": "config/area_registry/create",
		"name": name,
	}, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteArea removes an area.
func (c *Client) DeleteArea(ctx context.Context, areaID string) error {
	return c.call(ctx, map[string]any{
		"type":    "config/area_registry/delete",
		"area_id": areaID,
	}, nil)
}

// SetEntityHidden hides or unhides an entity; an empty value unhides.
func (c *Client) SetEntityHidden(ctx context.Context, entityID, hiddenBy string) error {
	return c.call(ctx, map[string]any{
		"type":      "config/entity_registry/update",
		"entity_id": entityID,
		"hidden_by": nullable(hiddenBy),
	}, nil)
}

// RemoveEntity deletes an entity registry entry.
func (c *Client) RemoveEntity(ctx context.Context, entityID string) error {
	return c.call(ctx, map[string]any{
		"type":      "config/entity_registry/remove",
		"entity_id": entityID,
	}, nil)
}
