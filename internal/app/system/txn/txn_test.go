package txn_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	standalone := mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("duplicate key on groups.name_ci"), false},
		{"standalone server", standalone, true},
		{"wrapped standalone server", fmt.Errorf("delete group: %w", standalone), true},
		{"legacy code", mongo.CommandError{Code: 51, Message: "illegal"}, true},
		{"not allowed in transaction", mongo.CommandError{Code: 263, Message: "cannot run in a multi-document transaction"}, true},
		{"other command error", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key"}, false},
		{"two keywords", errors.New("Session Operations Are NOT SUPPORTED here"), true},
		{"one keyword", errors.New("transaction aborted"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
