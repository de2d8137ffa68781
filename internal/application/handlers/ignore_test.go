package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvandijk/housekeeper/internal/domain/mocks"
)

func TestIgnoreHandler_AddListRemove(t *testing.T) {
	store := mocks.NewStore()
	handler := NewIgnoreHandler(store)

	err := handler.HandleAdd(t.Context(), []string{"remove_entity:sensor.lost", " set_entity_area:light.counter ", ""})
	require.NoError(t, err)

	list, err := handler.HandleList(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"remove_entity:sensor.lost", "set_entity_area:light.counter"}, list)

	require.NoError(t, handler.HandleRemove(t.Context(), []string{"remove_entity:sensor.lost"}))
	list, err = handler.HandleList(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"set_entity_area:light.counter"}, list)
}

func TestIgnoreHandler_AddRejectsEmpty(t *testing.T) {
	handler := NewIgnoreHandler(mocks.NewStore())
	err := handler.HandleAdd(t.Context(), []string{"", "   "})
	require.Error(t, err)
}

func TestIgnoreHandler_Clear(t *testing.T) {
	store := mocks.NewStore()
	handler := NewIgnoreHandler(store)
	require.NoError(t, handler.HandleAdd(t.Context(), []string{"a:b", "c:d"}))
	require.NoError(t, handler.HandleClear(t.Context()))

	list, err := handler.HandleList(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)
}
