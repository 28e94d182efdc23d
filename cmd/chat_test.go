package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knearme/showcase/core/project"
)

func TestCommand_ImageArmsParallelGeneration(t *testing.T) {
	a := &app{}
	state := &project.State{}
	var out strings.Builder

	done, err := a.command(&out, state, "/image https://cdn.example.com/after.jpg after")
	require.NoError(t, err)

	assert.False(t, done)
	assert.True(t, a.pendingImages, "an uploaded image must trigger the parallel pass next turn")
	require.Len(t, state.Images, 1)
	assert.Equal(t, "https://cdn.example.com/after.jpg", state.Images[0].URL)
	assert.Equal(t, project.ImageRoleAfter, state.Images[0].Role)
	assert.NotEmpty(t, state.Images[0].ID)
}

func TestCommand_ImageDefaultsToDetailRole(t *testing.T) {
	a := &app{}
	state := &project.State{}
	var out strings.Builder

	_, err := a.command(&out, state, "/image https://cdn.example.com/shot.jpg")
	require.NoError(t, err)

	require.Len(t, state.Images, 1)
	assert.Equal(t, project.ImageRoleDetail, state.Images[0].Role)
}

func TestCommand_ImageWithoutURL(t *testing.T) {
	a := &app{}
	var out strings.Builder

	_, err := a.command(&out, &project.State{}, "/image")
	require.NoError(t, err)

	assert.False(t, a.pendingImages)
	assert.Contains(t, out.String(), "usage:")
}

func TestCommand_Quit(t *testing.T) {
	a := &app{}
	var out strings.Builder

	done, err := a.command(&out, &project.State{}, "/quit")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestCommand_State(t *testing.T) {
	a := &app{}
	var out strings.Builder

	_, err := a.command(&out, &project.State{City: "Denver"}, "/state")
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"city": "Denver"`)
}
