package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedRows_EmptyRoundTrip(t *testing.T) {
	agg := Aggregate{PersonalData: PersonalData{ID: "pd-1"}}

	raw, err := json.Marshal(agg)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	var address map[string]interface{}
	require.NoError(t, json.Unmarshal(fields["addresses"], &address))
	assert.Contains(t, address, "created_at")
	assert.Contains(t, address, "updated_at")
	assert.NotContains(t, address, "id")

	var back Aggregate
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Addresses.CreatedAt.IsZero())
	assert.True(t, back.SchoolingData.UpdatedAt.IsZero())
	assert.False(t, back.Addresses.HasContent())
	assert.False(t, back.SchoolingData.HasContent())
}

func TestHasContent(t *testing.T) {
	blank := ""
	bairro := "Centro"
	owner := StudentID("student-1")

	assert.False(t, (&AddressData{StudentID: &owner, ID: "addr-1"}).HasContent())
	assert.False(t, (&AddressData{Bairro: &blank}).HasContent())
	assert.True(t, (&AddressData{Bairro: &bairro}).HasContent())
}
