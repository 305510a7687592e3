package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachmentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "Dune.epub", `attachment; filename="Dune.epub"`},
		{"spaces", "The Left Hand of Darkness.pdf", `attachment; filename="The Left Hand of Darkness.pdf"`},
		{"quotes_escaped", `He Said "Go".pdf`, `attachment; filename="He Said \"Go\".pdf"`},
		{"backslash_escaped", `odd\name.mobi`, `attachment; filename="odd\\name.mobi"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, attachmentDisposition(tt.filename))
		})
	}
}
