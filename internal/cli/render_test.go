package cli

import "testing"

func TestBasePath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		want   string
	}{
		{
			name:   "empty output strips input extension",
			output: "",
			input:  "model.json",
			want:   "model",
		},
		{
			name:   "input directory preserved",
			output: "",
			input:  "graphs/model.json",
			want:   "graphs/model",
		},
		{
			name:   "output svg extension stripped",
			output: "out.svg",
			input:  "model.json",
			want:   "out",
		},
		{
			name:   "output dot extension stripped",
			output: "diagram.dot",
			input:  "model.json",
			want:   "diagram",
		},
		{
			name:   "bare output kept",
			output: "out",
			input:  "model.json",
			want:   "out",
		},
		{
			name:   "foreign extension kept",
			output: "archive.tar",
			input:  "model.json",
			want:   "archive.tar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}
