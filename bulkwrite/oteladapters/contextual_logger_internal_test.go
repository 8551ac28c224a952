package oteladapters

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log"
)

func Test_toLogKeyValue(t *testing.T) {
	testCases := []struct {
		name     string
		value    any
		expected log.Value
	}{
		{name: "string", value: "abc", expected: log.StringValue("abc")},
		{name: "int", value: 7, expected: log.IntValue(7)},
		{name: "int64", value: int64(8), expected: log.Int64Value(8)},
		{name: "float64", value: 1.5, expected: log.Float64Value(1.5)},
		{name: "bool", value: true, expected: log.BoolValue(true)},
		{name: "error", value: errors.New("boom"), expected: log.StringValue("boom")},
		{name: "duration", value: 2 * time.Second, expected: log.StringValue("2s")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			kv := toLogKeyValue("key", tc.value)

			assert.Equal(t, "key", kv.Key)
			assert.True(t, tc.expected.Equal(kv.Value), "got %s", kv.Value.String())
		})
	}
}
