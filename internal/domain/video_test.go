package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVideo(t *testing.T) {
	v := NewVideo("owner-1", "clip", "desc", "misc", []string{"a"})

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, StatusInProgress, v.Status)
	assert.False(t, v.Ready())
	assert.False(t, v.Terminal())
	assert.True(t, v.OwnedBy("owner-1"))
	assert.False(t, v.OwnedBy("owner-2"))
}

func TestStatusTransitions(t *testing.T) {
	v := NewVideo("owner-1", "clip", "", "", nil)

	v.Status = StatusUploaded
	assert.True(t, v.Ready())
	assert.True(t, v.Terminal())

	v.Status = StatusError
	assert.False(t, v.Ready())
	assert.True(t, v.Terminal())
}

func TestThumbNamePrefersCustom(t *testing.T) {
	v := &Video{StaticThumbName: "v1_thumb.webp"}
	assert.Equal(t, "v1_thumb.webp", v.ThumbName())

	v.CustomThumbName = "v1_custom.webp"
	assert.Equal(t, "v1_custom.webp", v.ThumbName())
}

func TestMetadataPatchApply(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name  string
		patch MetadataPatch
		want  Video
	}{
		{
			name:  "empty patch changes nothing",
			patch: MetadataPatch{},
			want:  Video{Title: "t", Description: "d", Category: "c", Tags: []string{"x"}},
		},
		{
			name:  "title only",
			patch: MetadataPatch{Title: str("new")},
			want:  Video{Title: "new", Description: "d", Category: "c", Tags: []string{"x"}},
		},
		{
			name:  "empty string clears field",
			patch: MetadataPatch{Description: str("")},
			want:  Video{Title: "t", Description: "", Category: "c", Tags: []string{"x"}},
		},
		{
			name:  "tags replaced wholesale",
			patch: MetadataPatch{Tags: []string{"y", "z"}},
			want:  Video{Title: "t", Description: "d", Category: "c", Tags: []string{"y", "z"}},
		},
		{
			name:  "all fields",
			patch: MetadataPatch{Title: str("a"), Description: str("b"), Category: str("e"), Tags: []string{}},
			want:  Video{Title: "a", Description: "b", Category: "e", Tags: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Video{Title: "t", Description: "d", Category: "c", Tags: []string{"x"}}
			tt.patch.Apply(&v)
			assert.Equal(t, tt.want, v)
		})
	}
}
