package swrcache

import (
	"errors"
	"testing"
)

func TestResultEqual(t *testing.T) {
	err := errors.New("x")

	tests := []struct {
		name string
		a, b Result
		want bool
	}{
		{
			"identical",
			Result{Status: StatusSuccess, Data: "v"},
			Result{Status: StatusSuccess, Data: "v"},
			true,
		},
		{
			"different status",
			Result{Status: StatusSuccess, Data: "v"},
			Result{Status: StatusRefreshing, Data: "v"},
			false,
		},
		{
			"different retries",
			Result{Status: StatusLoading, Retries: 1},
			Result{Status: StatusLoading, Retries: 2},
			false,
		},
		{
			"same error identity",
			Result{Status: StatusError, Err: err},
			Result{Status: StatusError, Err: err},
			true,
		},
		{
			"different errors",
			Result{Status: StatusError, Err: err},
			Result{Status: StatusError, Err: errors.New("x")},
			false,
		},
		{
			"deep equal data",
			Result{Status: StatusSuccess, Data: []int{1, 2}},
			Result{Status: StatusSuccess, Data: []int{1, 2}},
			true,
		},
		{
			"different data",
			Result{Status: StatusSuccess, Data: []int{1, 2}},
			Result{Status: StatusSuccess, Data: []int{2, 1}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}
