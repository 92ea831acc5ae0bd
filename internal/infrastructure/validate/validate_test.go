package validate

import (
	"strings"
	"testing"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	assert.NoError(t, Join("lobby", "Alice"))
	assert.NoError(t, Join(strings.Repeat("é", MaxRoomIDLength), "Ålice"))
	assert.NoError(t, Join("lobby", "anything\tgoes"))

	for _, tc := range []struct{ room, name, want string }{
		{room: "", name: "Alice", want: "room id: this field is required"},
		{room: "lobby", name: "  ", want: "display name: this field is required"},
		{room: strings.Repeat("x", MaxRoomIDLength+1), name: "Alice", want: "room id: must be no more than 256 characters"},
		{room: "lob\nby", name: "Alice", want: "room id: must not contain control characters"},
		{room: "room\xff", name: "Alice", want: "room id: must be valid UTF-8"},
		{room: "lobby", name: "Ali\xffce", want: "display name: must be valid UTF-8"},
	} {
		err := Join(tc.room, tc.name)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.ErrorContains(t, err, tc.want)
	}
}

func TestComposeFirstErrorWins(t *testing.T) {
	v := Compose(Required(), MaxLength(3))
	assert.EqualError(t, v(""), "this field is required")
	assert.EqualError(t, v("four"), "must be no more than 3 characters")
	assert.NoError(t, v("ok"))
}
