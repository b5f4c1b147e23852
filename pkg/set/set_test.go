package set_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warren2314/OSS-Checker/pkg/set"
)

func TestSet_Add(t *testing.T) {
	s := set.New[string]()
	assert.True(t, s.Add("foo"))
	assert.False(t, s.Add("foo"))
	assert.True(t, s.Add("bar"))
}

func TestKeyed(t *testing.T) {
	s := set.NewKeyed(strings.ToLower)
	assert.Empty(t, s.Values())
	assert.True(t, s.Add("Foo"))
	assert.False(t, s.Add("foo"))
	assert.True(t, s.Add("bar"))
	assert.False(t, s.Add("BAR"))
	assert.Equal(t, []string{"Foo", "bar"}, s.Values())
}

func TestKeyed_ValuesIsACopy(t *testing.T) {
	s := set.NewKeyed(func(i int) int { return i })
	s.Add(1)
	s.Add(2)
	v := s.Values()
	v[0] = 42
	assert.Equal(t, []int{1, 2}, s.Values())
}
