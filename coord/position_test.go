package coord

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	var v Value
	_, ok := v.Get()
	assert.False(t, ok)
	assert.Equal(t, None, v)
	assert.Equal(t, 5.0, v.Or(5))

	v = Some(0)
	f, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.0, f)
	assert.NotEqual(t, None, v, "zero must not look unset")
}

func TestValue_Add(t *testing.T) {
	assert.Equal(t, Some(11), Some(10).Add(1))
	assert.Equal(t, None, None.Add(1))
}

func TestValue_JSON(t *testing.T) {
	data, err := json.Marshal(Position{X: Some(10), Y: Some(20.5)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"x":10,"y":20.5,"z":null,"e":null}`, string(data))

	var p Position
	err = json.Unmarshal([]byte(`{"x":1,"z":null}`), &p)
	assert.NoError(t, err)
	assert.Equal(t, Position{X: Some(1)}, p)
}

func TestPosition_Offset(t *testing.T) {
	p := Position{X: Some(1), Y: Some(2), E: Some(4)}

	assert.Equal(t, Position{X: Some(0), Y: Some(3), E: Some(4)}, p.Offset(-1, 1, 1))
}

func TestPosition_String(t *testing.T) {
	p := Position{X: Some(10), Y: Some(20.5), Z: Some(-5)}
	assert.Equal(t, "X:10 Y:20.5 Z:-5 E:-", p.String())
	assert.False(t, p.Complete())
	p.E = Some(0)
	assert.True(t, p.Complete())
}
