// Package fetch - platform.go provides platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known documentation hosting platform.
type Platform string

const (
	// PlatformConfluence is Atlassian Confluence
	PlatformConfluence Platform = "confluence"
	// PlatformNotion is Notion published pages
	PlatformNotion Platform = "notion"
	// PlatformGitHub is GitHub readme/wiki/issue pages
	PlatformGitHub Platform = "github"
	// PlatformGoogleDocs is published Google Docs
	PlatformGoogleDocs Platform = "google-docs"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the documentation platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)
	path := strings.ToLower(parsed.Path)

	// Confluence patterns (cloud and self-hosted)
	if strings.Contains(host, "atlassian.net") ||
		strings.Contains(host, "confluence.") ||
		strings.Contains(path, "/wiki/spaces/") {
		return PlatformConfluence
	}

	// Notion patterns
	if strings.Contains(host, "notion.site") ||
		strings.Contains(host, "notion.so") {
		return PlatformNotion
	}

	// GitHub patterns
	if strings.Contains(host, "github.com") ||
		strings.Contains(host, "github.io") {
		return PlatformGitHub
	}

	// Google Docs patterns
	if strings.Contains(host, "docs.google.com") {
		return PlatformGoogleDocs
	}

	return PlatformUnknown
}

// PlatformContentSelectors returns content selectors optimized for a specific platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformConfluence:
		return []string{
			"#main-content", // primary cloud selector
			".wiki-content",
			"#content .page",
			".ak-renderer-document",
		}
	case PlatformNotion:
		return []string{
			".notion-page-content",
			"main.notion-frame",
			".notion-app-inner",
		}
	case PlatformGitHub:
		return []string{
			".markdown-body", // rendered readme and wiki pages
			"#readme",
			".comment-body", // issue body
			"#wiki-body",
		}
	case PlatformGoogleDocs:
		return []string{
			".doc-content",
			"#contents",
			".kix-appview-editor",
		}
	default:
		return DocPageSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a specific platform.
func PlatformNoiseSelectors(platform Platform) []string {
	// Common noise selectors for all platforms
	common := []string{
		// Interaction chrome
		"form",
		".comments",
		".comment-section",
		".edit-button",
		".toolbar",
		".breadcrumbs",

		// Social and share buttons
		".social-share",
		".share-buttons",
		".social-links",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",

		// Generic navigation already handled in fetch.go
	}

	// Platform-specific noise selectors
	switch platform {
	case PlatformConfluence:
		return append(common,
			"#comments-section",
			".page-metadata",
			".aui-sidebar",
			".like-button-container",
			".space-tools-section",
		)
	case PlatformNotion:
		return append(common,
			".notion-topbar",
			".notion-overlay-container",
			".notion-selectable-halo",
		)
	case PlatformGitHub:
		return append(common,
			".js-header-wrapper",
			".gh-header-actions",
			".discussion-timeline-actions",
			".footer",
			".file-navigation",
		)
	case PlatformGoogleDocs:
		return append(common,
			".docs-ml-header",
			".docs-butterbar-container",
		)
	default:
		return common
	}
}
