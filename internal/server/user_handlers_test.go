package server

import (
	"context"
	"net/http"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowUser(t *testing.T) {
	s, app := newTestServer(t, false)
	ctx := context.Background()
	alice := signup(t, s, "alice")
	bob := signup(t, s, "bob")
	require.NoError(t, s.followService.Follow(ctx, bob.ID, alice.ID))
	_, err := s.messageService.Create(ctx, alice.ID, "hello from alice")
	require.NoError(t, err)

	type profileBody struct {
		Profile struct {
			User         models.User      `json:"user"`
			Messages     []models.Message `json:"messages"`
			MessageCount int64            `json:"message_count"`
			Followers    int64            `json:"followers"`
			Following    int64            `json:"following"`
		} `json:"profile"`
		IsFollowing  bool `json:"is_following"`
		IsFollowedBy bool `json:"is_followed_by"`
	}

	t.Run("anonymous", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, idPath("/users/", alice.ID, ""), nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body profileBody
		decodeJSON(t, resp, &body)
		assert.Equal(t, "alice", body.Profile.User.Username)
		assert.Equal(t, int64(1), body.Profile.MessageCount)
		assert.Equal(t, int64(1), body.Profile.Followers)
		assert.Equal(t, int64(0), body.Profile.Following)
		require.Len(t, body.Profile.Messages, 1)
		assert.False(t, body.IsFollowing)
		assert.False(t, body.IsFollowedBy)
	})

	t.Run("viewed by a follower", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, idPath("/users/", alice.ID, ""), nil, tokenFor(t, s, bob))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body profileBody
		decodeJSON(t, resp, &body)
		assert.True(t, body.IsFollowing)
		assert.False(t, body.IsFollowedBy)
	})

	t.Run("viewed by the followee", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, idPath("/users/", bob.ID, ""), nil, tokenFor(t, s, alice))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body profileBody
		decodeJSON(t, resp, &body)
		assert.False(t, body.IsFollowing)
		assert.True(t, body.IsFollowedBy)
	})

	t.Run("not found", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/users/9999", nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/users/abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListUsers(t *testing.T) {
	s, app := newTestServer(t, false)
	signup(t, s, "warbler_fan")
	signup(t, s, "WarblerPro")
	signup(t, s, "someone_else")

	var body struct {
		Users []models.UserSummary `json:"users"`
	}

	resp := doRequest(t, app, http.MethodGet, "/users?q=warbler", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &body)
	names := []string{}
	for _, u := range body.Users {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"warbler_fan", "WarblerPro"}, names)

	resp = doRequest(t, app, http.MethodGet, "/users", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &body)
	assert.Len(t, body.Users, 3)
}

func TestUpdateProfile(t *testing.T) {
	s, app := newTestServer(t, false)
	user := signup(t, s, "editor")
	token := tokenFor(t, s, user)

	t.Run("wrong password", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/users/profile",
			map[string]string{"password": "wrong-one", "bio": "nope"}, token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Wrong password, please try again.")
	})

	t.Run("success", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/users/profile", map[string]string{
			"password": testPassword,
			"bio":      "I warble",
			"location": "Nowhere",
		}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var updated models.User
		decodeJSON(t, resp, &updated)
		assert.Equal(t, "editor", updated.Username)
		assert.Equal(t, "I warble", updated.Bio)
		assert.Equal(t, models.DefaultImageURL, updated.ImageURL)

		// the password survives a profile edit
		authed, err := s.userService.Authenticate(context.Background(), "editor", testPassword)
		require.NoError(t, err)
		assert.NotNil(t, authed)
	})

	t.Run("logged out", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/users/profile", map[string]string{"password": testPassword}, "")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})
}

func TestDeleteUser(t *testing.T) {
	s, app := newTestServer(t, false)
	ctx := context.Background()
	doomed := signup(t, s, "doomed")
	other := signup(t, s, "survivor")
	require.NoError(t, s.followService.Follow(ctx, other.ID, doomed.ID))
	_, err := s.messageService.Create(ctx, doomed.ID, "last words")
	require.NoError(t, err)

	resp := doRequest(t, app, http.MethodPost, "/users/delete", nil, tokenFor(t, s, doomed))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, idPath("/users/", doomed.ID, ""), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	following, err := s.followService.ListFollowing(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestShowLikes(t *testing.T) {
	s, app := newTestServer(t, false)
	ctx := context.Background()
	author := signup(t, s, "author")
	fan := signup(t, s, "fan")
	msg, err := s.messageService.Create(ctx, author.ID, "likeable")
	require.NoError(t, err)
	_, err = s.messageService.ToggleLike(ctx, fan.ID, msg.ID)
	require.NoError(t, err)

	resp := doRequest(t, app, http.MethodGet, idPath("/users/", fan.ID, "/likes"), nil, tokenFor(t, s, author))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "likeable")

	resp = doRequest(t, app, http.MethodGet, idPath("/users/", fan.ID, "/likes"), nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
