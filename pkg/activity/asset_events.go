package activity

import (
	"strings"
	"time"
)

// Asset lifecycle verbs.
const (
	VerbAssetCreated      = "asset.created"
	VerbAssetImported     = "asset.imported"
	VerbAssetSaved        = "asset.saved"
	VerbAssetRestored     = "asset.restored"
	VerbAssetDecodeFailed = "asset.decode_failed"
)

// ObjectTypeAsset is the object type attached to asset events.
const ObjectTypeAsset = "asset"

// AssetEventInput describes the common fields for asset lifecycle events.
type AssetEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Name           string
	Path           string
	Diagnostics    string
	Err            error
	OccurredAt     time.Time
}

// BuildAssetCreatedEvent constructs an event for a newly created asset file.
func BuildAssetCreatedEvent(input AssetEventInput) Event {
	return buildAssetEvent(VerbAssetCreated, input)
}

// BuildAssetImportedEvent constructs an event for an asset loaded from disk.
func BuildAssetImportedEvent(input AssetEventInput) Event {
	return buildAssetEvent(VerbAssetImported, input)
}

// BuildAssetSavedEvent constructs an event for a successful save.
func BuildAssetSavedEvent(input AssetEventInput) Event {
	return buildAssetEvent(VerbAssetSaved, input)
}

// BuildAssetRestoredEvent constructs an event for a successful restore.
func BuildAssetRestoredEvent(input AssetEventInput) Event {
	return buildAssetEvent(VerbAssetRestored, input)
}

// BuildAssetDecodeFailedEvent constructs an event for text that could not be
// applied to an asset.
func BuildAssetDecodeFailedEvent(input AssetEventInput) Event {
	return buildAssetEvent(VerbAssetDecodeFailed, input)
}

func buildAssetEvent(verb string, input AssetEventInput) Event {
	metadata := CloneMetadata(input.Metadata)
	if name := strings.TrimSpace(input.Name); name != "" {
		metadata = ensureMetadata(metadata)
		metadata["name"] = name
	}
	if path := strings.TrimSpace(input.Path); path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = path
	}
	if input.Diagnostics != "" {
		metadata = ensureMetadata(metadata)
		metadata["diagnostics"] = input.Diagnostics
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Name)
	}
	if objectID == "" {
		objectID = ObjectTypeAsset
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeAsset,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
