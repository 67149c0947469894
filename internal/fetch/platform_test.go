package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform_Confluence(t *testing.T) {
	assert.Equal(t, PlatformConfluence, DetectPlatform("https://acme.atlassian.net/wiki/spaces/ENG/pages/123"))
	assert.Equal(t, PlatformConfluence, DetectPlatform("https://confluence.acme.com/display/ENG/Spec"))
}

func TestDetectPlatform_Notion(t *testing.T) {
	assert.Equal(t, PlatformNotion, DetectPlatform("https://acme.notion.site/Requirements-abc123"))
	assert.Equal(t, PlatformNotion, DetectPlatform("https://www.notion.so/acme/Spec-def456"))
}

func TestDetectPlatform_GitHub(t *testing.T) {
	assert.Equal(t, PlatformGitHub, DetectPlatform("https://github.com/acme/svc/blob/main/README.md"))
	assert.Equal(t, PlatformGitHub, DetectPlatform("https://acme.github.io/docs/spec.html"))
}

func TestDetectPlatform_GoogleDocs(t *testing.T) {
	assert.Equal(t, PlatformGoogleDocs, DetectPlatform("https://docs.google.com/document/d/abc/pub"))
}

func TestDetectPlatform_Unknown(t *testing.T) {
	assert.Equal(t, PlatformUnknown, DetectPlatform("https://example.com/spec"))
	assert.Equal(t, PlatformUnknown, DetectPlatform("://bad"))
}

func TestPlatformContentSelectors(t *testing.T) {
	assert.Contains(t, PlatformContentSelectors(PlatformConfluence), "#main-content")
	assert.Contains(t, PlatformContentSelectors(PlatformNotion), ".notion-page-content")
	assert.Contains(t, PlatformContentSelectors(PlatformGitHub), ".markdown-body")
	assert.Equal(t, DocPageSelectors(), PlatformContentSelectors(PlatformUnknown))
}

func TestPlatformNoiseSelectors(t *testing.T) {
	for _, platform := range []Platform{
		PlatformConfluence, PlatformNotion, PlatformGitHub, PlatformGoogleDocs, PlatformUnknown,
	} {
		noise := PlatformNoiseSelectors(platform)
		assert.Contains(t, noise, ".cookie-banner", "platform %s", platform)
		assert.Contains(t, noise, ".comments", "platform %s", platform)
	}

	assert.Contains(t, PlatformNoiseSelectors(PlatformConfluence), "#comments-section")
	assert.Contains(t, PlatformNoiseSelectors(PlatformGitHub), ".gh-header-actions")
}
