package uri

import "testing"

func TestFileURI(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		relPath string
		want    string
	}{
		{
			name:    "simple path",
			root:    "/srv/crm",
			relPath: "max_backend/routes/chat.js",
			want:    "file:///srv/crm/max_backend/routes/chat.js",
		},
		{
			name:    "leading slash in relative path",
			root:    "/srv/crm",
			relPath: "/max_backend/routes/chat.js",
			want:    "file:///srv/crm/max_backend/routes/chat.js",
		},
		{
			name:    "trailing slash in root",
			root:    "/srv/crm/",
			relPath: "a.js",
			want:    "file:///srv/crm/a.js",
		},
		{
			name:    "path with spaces",
			root:    "/home/dev/my crm",
			relPath: "src/pages/Chat Page.tsx",
			want:    "file:///home/dev/my%20crm/src/pages/Chat%20Page.tsx",
		},
		{
			name:    "path with special chars",
			root:    "/srv/crm",
			relPath: "pages/[id] (copy).tsx",
			want:    "file:///srv/crm/pages/%5Bid%5D%20%28copy%29.tsx",
		},
		{
			name:    "non-ascii path",
			root:    "/srv/crm",
			relPath: "données.js",
			want:    "file:///srv/crm/donn%C3%A9es.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FileURI(tt.root, tt.relPath)
			if got != tt.want {
				t.Errorf("FileURI() = %q, want %q", got, tt.want)
			}
		})
	}
}
