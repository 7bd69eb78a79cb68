package models_test

import (
	"testing"

	"github.com/notedcloud/noted/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishTransitions(t *testing.T) {
	publish, err := models.Begin(models.StatePrivate, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatePublishing, publish.Pending())
	assert.Equal(t, models.StatePublic, publish.Succeed())
	assert.Equal(t, models.StatePrivate, publish.Fail())

	retract, err := models.Begin(models.StatePublic, false)
	require.NoError(t, err)
	assert.Equal(t, models.StateRetracting, retract.Pending())
	assert.Equal(t, models.StatePrivate, retract.Succeed())
	assert.Equal(t, models.StatePublic, retract.Fail())

	republish, err := models.Begin(models.StatePublic, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatePublic, republish.Fail())
}

func TestBeginRejectsInFlightState(t *testing.T) {
	_, err := models.Begin(models.StatePublishing, false)
	assert.Error(t, err)
	_, err = models.Begin(models.StateRetracting, true)
	assert.Error(t, err)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, models.StatePrivate, models.StateOf(nil))
	assert.Equal(t, models.StatePrivate, models.StateOf(&models.Page{}))
	assert.Equal(t, models.StatePrivate, models.StateOf(&models.Page{IsPublic: models.Ptr(false)}))
	assert.Equal(t, models.StatePublic, models.StateOf(&models.Page{IsPublic: models.Ptr(true)}))
	assert.Equal(t, "retracting", models.StateRetracting.String())
}
