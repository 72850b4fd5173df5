// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mulita/pkg/query"
)

func TestStringSlice(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{name: "absent", values: nil, want: nil},
		{name: "comma separated", values: []string{"usuario, docente"}, want: []string{"usuario", "docente"}},
		{name: "repeated parameter", values: []string{"admin", "superAdmin"}, want: []string{"admin", "superAdmin"}},
		{name: "blank items dropped", values: []string{",usuario,,"}, want: []string{"usuario"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, query.StringSlice(tt.values))
		})
	}
}

func TestBool(t *testing.T) {
	value, ok := query.Bool("true")
	assert.True(t, ok)
	assert.True(t, value)

	value, ok = query.Bool("0")
	assert.True(t, ok)
	assert.False(t, value)

	_, ok = query.Bool("")
	assert.False(t, ok)

	_, ok = query.Bool("yes please")
	assert.False(t, ok)
}
