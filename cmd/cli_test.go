// SPDX-License-Identifier: MIT
package cmd

import "testing"

func TestConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no flag", []string{"--device", "2"}, ""},
		{"long separate", []string{"--config", "a.yaml"}, "a.yaml"},
		{"long equals", []string{"--config=a.yaml"}, "a.yaml"},
		{"short separate", []string{"-f", "a.yaml"}, "a.yaml"},
		{"short equals", []string{"-f=a.yaml"}, "a.yaml"},
		{"flag without value", []string{"-f"}, ""},
		{"mixed with other flags", []string{"-v", "--config=b.yaml", "list"}, "b.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := configPathFromArgs(tt.args); got != tt.want {
				t.Errorf("configPathFromArgs(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
