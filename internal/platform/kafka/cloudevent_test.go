package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomEvent struct {
	RoomID   int64  `json:"roomID"`
	RoomName string `json:"roomName"`
}

func TestNewCloudEvent_RoundTrip(t *testing.T) {
	ce, err := NewCloudEvent("service-reservation", "room.created", roomEvent{RoomID: 1, RoomName: "Hall A"})
	require.NoError(t, err)
	ce.Subject = "1"

	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.NotEmpty(t, ce.ID)
	assert.Equal(t, "application/json", ce.DataContentType)

	raw, err := json.Marshal(ce)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ce.ID, parsed.ID)
	assert.Equal(t, "room.created", parsed.Type)
	assert.Equal(t, "1", parsed.Subject)

	var data roomEvent
	require.NoError(t, parsed.ParseData(&data))
	assert.Equal(t, roomEvent{RoomID: 1, RoomName: "Hall A"}, data)
}

func TestParseCloudEvent_Rejects(t *testing.T) {
	_, err := ParseCloudEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseCloudEvent([]byte(`{"id":"x"}`))
	assert.Error(t, err)
}

func TestParseData_Empty(t *testing.T) {
	var v roomEvent
	assert.Error(t, CloudEvent{ID: "x"}.ParseData(&v))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishEvent(context.Background(), "any", CloudEvent{}))
}
