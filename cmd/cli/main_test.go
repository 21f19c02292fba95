package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/internal/service/composer"
)

type upper struct{ users []string }

func (u *upper) Respond(_ context.Context, message, userID string) chat.Reply {
	u.users = append(u.users, userID)
	return chat.Reply{Text: strings.ToUpper(message)}
}

func TestRun(t *testing.T) {
	svc := &upper{}
	var out bytes.Buffer

	run(context.Background(), svc, "u1", strings.NewReader("hello\n\n  fever  \nEXIT\nignored\n"), &out)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, composer.Welcome))
	assert.Contains(t, got, "Bot: HELLO\n")
	assert.Contains(t, got, "Bot: FEVER\n")
	assert.Contains(t, got, composer.Farewell)
	assert.NotContains(t, got, "IGNORED")
	assert.Equal(t, []string{"u1", "u1"}, svc.users)
}

func TestRunStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	run(context.Background(), &upper{}, "u1", strings.NewReader("hi"), &out)
	assert.Contains(t, out.String(), "Bot: HI\n")
	assert.NotContains(t, out.String(), composer.Farewell)
}
