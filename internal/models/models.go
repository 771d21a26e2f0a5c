package models

import "time"

type MediaClass string

const (
	MediaClassImage MediaClass = "image"
	MediaClassVideo MediaClass = "video"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Album is a time-bounded collection of media. MediaCount and MemberCount are
// advisory counters maintained with $inc updates; the authoritative values are
// the matching media/membership documents.
type Album struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	CreatedBy   string    `bson:"created_by" json:"created_by"`
	ExpiresAt   time.Time `bson:"expires_at" json:"expires_at"`
	Active      bool      `bson:"active" json:"active"`
	MemberCount int64     `bson:"member_count" json:"member_count"`
	MediaCount  int64     `bson:"media_count" json:"media_count"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// AlbumMembership ties a user to an album. Memberships are deactivated by the
// expiration cascade, never hard-deleted.
type AlbumMembership struct {
	ID        string    `bson:"_id" json:"id"` // "{albumID}:{userID}"
	AlbumID   string    `bson:"album_id" json:"album_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Role      Role      `bson:"role" json:"role"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func MembershipID(albumID, userID string) string {
	return albumID + ":" + userID
}

// VideoMetadata holds whatever technical details probing the upload produced.
// Every field is independently optional; partial metadata is valid.
type VideoMetadata struct {
	DurationSeconds *float64 `bson:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
	Width           *int     `bson:"width,omitempty" json:"width,omitempty"`
	Height          *int     `bson:"height,omitempty" json:"height,omitempty"`
	FrameRate       *float64 `bson:"frame_rate,omitempty" json:"frame_rate,omitempty"`
	BitrateKbps     *int     `bson:"bitrate_kbps,omitempty" json:"bitrate_kbps,omitempty"`
}

// MediaAsset is one uploaded image or video plus its derived artifacts.
// StoragePath is the canonical object key going forward; historical records
// may instead carry a full URL in either field, which is why deletion always
// goes through storage.ResolveKey. Thumbnail/preview fields are empty when
// derivation failed or was never attempted.
type MediaAsset struct {
	ID            string         `bson:"_id" json:"id"`
	AlbumID       string         `bson:"album_id" json:"album_id"`
	UploaderID    string         `bson:"uploader_id" json:"uploader_id"`
	Class         MediaClass     `bson:"class" json:"class"`
	Size          int64          `bson:"size" json:"size"`
	ContentType   string         `bson:"content_type" json:"content_type"`
	Filename      string         `bson:"filename" json:"filename"`
	StoragePath   string         `bson:"storage_path" json:"storage_path"`
	PublicURL     string         `bson:"public_url,omitempty" json:"public_url,omitempty"`
	ThumbnailPath string         `bson:"thumbnail_path,omitempty" json:"thumbnail_path,omitempty"`
	ThumbnailURL  string         `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
	PreviewPath   string         `bson:"preview_path,omitempty" json:"preview_path,omitempty"`
	PreviewURL    string         `bson:"preview_url,omitempty" json:"preview_url,omitempty"`
	Video         *VideoMetadata `bson:"video,omitempty" json:"video,omitempty"`
	ViewCount     int64          `bson:"view_count" json:"view_count"`
	DownloadCount int64          `bson:"download_count" json:"download_count"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}
