package bus

import (
	"terrastudio/editor"
	"terrastudio/territory"
	"time"
)

// Message types exchanged with map surfaces.
type MessageType string

const (
	// Incoming message types (surface to host)
	MessageTypeSurfaceAttach MessageType = "surface_attach"
	MessageTypeViewState     MessageType = "view_state"
	MessageTypePointerEvent  MessageType = "pointer_event"
	MessageTypeKeyEvent      MessageType = "key_event"
	MessageTypeFeaturePick   MessageType = "feature_pick"
	MessageTypeDraftClick    MessageType = "draft_click"
	MessageTypeGetSource     MessageType = "get_source"
	MessageTypeSyncSource    MessageType = "sync_source"
	MessageTypeRunScript     MessageType = "run_script"
	MessageTypePickerEnter   MessageType = "picker_enter"
	MessageTypePickerExit    MessageType = "picker_exit"
	MessageTypeDraftEnter    MessageType = "draft_enter"
	MessageTypeDraftExit     MessageType = "draft_exit"
	MessageTypeDraftUndo     MessageType = "draft_undo"

	// Outgoing message types (host to surface)
	MessageTypeAttachAck          MessageType = "attach_ack"
	MessageTypeSelectionOverlay   MessageType = "set_selection_overlay"
	MessageTypeLabelOverlayFixed  MessageType = "set_label_selection_overlay_fixed"
	MessageTypeClearLabelOverlay  MessageType = "clear_label_selection_overlay_fixed"
	MessageTypeSetDraft           MessageType = "set_draft"
	MessageTypeSourceText         MessageType = "source_text"
	MessageTypeWorkspaceInstalled MessageType = "workspace_installed"
	MessageTypeScriptResult       MessageType = "script_result"
	MessageTypeHostStats          MessageType = "host_stats"
	MessageTypeError              MessageType = "error"
	MessageTypePing               MessageType = "ping"
)

// Surface roles. One sandboxed map per role; overlay commands address a
// role and are dropped when no surface of that role is attached.
const (
	SurfaceMain    = "main-map"
	SurfaceAdmin   = "admin-map"
	SurfaceLibrary = "library-map"
)

// Base message structure shared by both directions. Surface names the
// sender's role on inbound messages and the target role on outbound ones.
type Message struct {
	Type      MessageType `json:"type"`
	Surface   string      `json:"surface,omitempty"`
	RequestID string      `json:"request_id,omitempty"` // For correlating responses
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Incoming message data structures

type SurfaceAttachData struct {
	Role  string `json:"role"`
	Alias string `json:"alias,omitempty"` // imported-library alias for library tabs
}

type ViewStateData struct {
	Center territory.LatLng `json:"center"`
	Zoom   float64          `json:"zoom"`
}

// PointerEventData is a raw forwarded pointer event with modifier state.
// Kind is click, move, down or up.
type PointerEventData struct {
	Kind    string  `json:"kind"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Ctrl    bool    `json:"ctrl"`
	Meta    bool    `json:"meta"`
	Alt     bool    `json:"alt"`
	Primary bool    `json:"primary"` // primary button currently held
}

// KeyEventData is a raw forwarded key event. Kind is down or up; only
// down presses drive the controllers.
type KeyEventData struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

// FeaturePickData reports an interaction with a renderable feature. GADM
// features carry an id, territory features a name. HoverMode is add or
// remove during modifier-held sweeps and empty for plain clicks.
type FeaturePickData struct {
	FeatureType string `json:"feature_type"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	HoverMode   string `json:"hover_mode,omitempty"`
}

type DraftClickData struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type SyncSourceData struct {
	Source string `json:"source"`
}

type RunScriptData struct {
	Source string `json:"source"`
}

type PickerEnterData struct {
	ElementID string `json:"element_id"`
	Path      []int  `json:"path"`
	LeafType  string `json:"leaf_type"` // gadm or predefined
	Alias     string `json:"alias,omitempty"`
}

type DraftEnterData struct {
	ElementID string `json:"element_id"`
	Path      []int  `json:"path,omitempty"`
	Mode      string `json:"mode"` // path, polygon or point
}

// Outgoing message data structures

type AttachAckData struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
}

type SelectionOverlayData struct {
	Groups []editor.OverlayGroup `json:"groups"`
}

type SetDraftData struct {
	Points    []territory.LatLng `json:"points"`
	ShapeType string             `json:"shape_type"`
}

type SourceTextData struct {
	Source string `json:"source"`
}

type WorkspaceInstalledData struct {
	Elements int `json:"elements"`
}

type ScriptResultData struct {
	Source string `json:"source"`
}

// HostStatsData feeds the surfaces' debug HUD.
type HostStatsData struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryRSSMB   float64 `json:"memory_rss_mb"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Surfaces      int     `json:"surfaces"`
}

// Message handler function type
type MessageHandler func(*SurfaceClient, Message) error

// Interface for the underlying socket (for easier testing)
type SurfaceConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}
