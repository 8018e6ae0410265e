package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"terrastudio/codesync"
	"terrastudio/editor"
	"terrastudio/territory"
	"time"

	"go.uber.org/zap"
)

// registerHandlers registers all message handlers.
func (h *Hub) registerHandlers() {
	h.handlers[MessageTypeSurfaceAttach] = h.handleSurfaceAttach
	h.handlers[MessageTypeViewState] = h.handleViewState
	h.handlers[MessageTypePointerEvent] = h.handlePointerEvent
	h.handlers[MessageTypeKeyEvent] = h.handleKeyEvent
	h.handlers[MessageTypeFeaturePick] = h.handleFeaturePick
	h.handlers[MessageTypeDraftClick] = h.handleDraftClick

	// Source view handlers
	h.handlers[MessageTypeGetSource] = h.handleGetSource
	h.handlers[MessageTypeSyncSource] = h.handleSyncSource
	h.handlers[MessageTypeRunScript] = h.handleRunScript

	// Picker lifecycle handlers
	h.handlers[MessageTypePickerEnter] = h.handlePickerEnter
	h.handlers[MessageTypePickerExit] = h.handlePickerExit
	h.handlers[MessageTypeDraftEnter] = h.handleDraftEnter
	h.handlers[MessageTypeDraftExit] = h.handleDraftExit
	h.handlers[MessageTypeDraftUndo] = h.handleDraftUndo
}

// parseMessageData parses message data into the specified struct.
func parseMessageData(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

func (h *Hub) handleSurfaceAttach(c *SurfaceClient, msg Message) error {
	var data SurfaceAttachData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	if data.Role == "" {
		return fmt.Errorf("surface role is required")
	}

	c.setRole(data.Role, data.Alias)
	h.log.Info("surface attached",
		zap.String("client", c.id),
		zap.String("role", data.Role),
		zap.String("alias", data.Alias))

	c.reply(Message{
		Type:      MessageTypeAttachAck,
		RequestID: msg.RequestID,
		Data:      AttachAckData{ClientID: c.id, Role: data.Role},
		Timestamp: time.Now(),
	})
	return nil
}

func (h *Hub) handleViewState(c *SurfaceClient, msg Message) error {
	var data ViewStateData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	// The view is surface-local state. Workspace zoom/focus options only
	// change through source statements.
	h.log.Debug("view state",
		zap.String("client", c.id),
		zap.Float64("lat", data.Center.Lat()),
		zap.Float64("lng", data.Center.Lng()),
		zap.Float64("zoom", data.Zoom))
	return nil
}

func (h *Hub) handlePointerEvent(c *SurfaceClient, msg Message) error {
	var data PointerEventData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	pt := territory.LatLng{data.Lat, data.Lng}.Rounded()
	h.editor.HandlePointer(data.Kind, pt, data.Ctrl || data.Meta, data.Primary)
	return nil
}

func (h *Hub) handleKeyEvent(c *SurfaceClient, msg Message) error {
	var data KeyEventData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	if data.Kind == "up" {
		return nil
	}
	h.editor.HandleKey(data.Key)
	return nil
}

func (h *Hub) handleFeaturePick(c *SurfaceClient, msg Message) error {
	var data FeaturePickData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	id := data.ID
	if id == "" {
		id = data.Name
	}
	feature := editor.FeatureType(data.FeatureType)

	switch data.HoverMode {
	case "":
		h.editor.PaintPick(feature, id)
	case "add":
		h.editor.PaintSweep(feature, editor.SweepAdd, id)
	case "remove":
		h.editor.PaintSweep(feature, editor.SweepRemove, id)
	default:
		return fmt.Errorf("unknown hover mode %q", data.HoverMode)
	}
	return nil
}

func (h *Hub) handleDraftClick(c *SurfaceClient, msg Message) error {
	var data DraftClickData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	h.editor.DraftClick(territory.LatLng{data.Lat, data.Lng}.Rounded())
	return nil
}

func (h *Hub) handleGetSource(c *SurfaceClient, msg Message) error {
	src := codesync.Generate(h.editor.Snapshot())
	c.reply(Message{
		Type:      MessageTypeSourceText,
		RequestID: msg.RequestID,
		Data:      SourceTextData{Source: src},
		Timestamp: time.Now(),
	})
	return nil
}

func (h *Hub) handleSyncSource(c *SurfaceClient, msg Message) error {
	var data SyncSourceData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	ws, err := codesync.Sync(data.Source)
	if err != nil {
		return fmt.Errorf("sync source: %w", err)
	}

	h.editor.InstallWorkspace(ws)
	h.Broadcast(Message{
		Type:      MessageTypeWorkspaceInstalled,
		Data:      WorkspaceInstalledData{Elements: len(ws.Elements)},
		Timestamp: time.Now(),
	})
	return nil
}

func (h *Hub) handleRunScript(c *SurfaceClient, msg Message) error {
	var data RunScriptData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ScriptTimeout)
	defer cancel()
	if err := h.scripts.Execute(ctx, data.Source, h.editor); err != nil {
		return fmt.Errorf("script: %w", err)
	}

	snap := h.editor.Snapshot()
	c.reply(Message{
		Type:      MessageTypeScriptResult,
		RequestID: msg.RequestID,
		Data:      ScriptResultData{Source: codesync.Generate(snap)},
		Timestamp: time.Now(),
	})
	h.Broadcast(Message{
		Type:      MessageTypeWorkspaceInstalled,
		Data:      WorkspaceInstalledData{Elements: len(snap.Elements)},
		Timestamp: time.Now(),
	})
	return nil
}

func (h *Hub) handlePickerEnter(c *SurfaceClient, msg Message) error {
	var data PickerEnterData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	leafType := territory.PartType(data.LeafType)

	// Overlays render on the reference map for regions and on the library
	// map for territory names, unless the message names a surface.
	surface := msg.Surface
	if surface == "" {
		surface = SurfaceAdmin
		if leafType == territory.TypePredefined {
			surface = SurfaceLibrary
		}
	}
	alias := data.Alias
	if alias == "" {
		alias = c.Alias()
	}

	target := editor.PaintTarget{
		ElementID: data.ElementID,
		Path:      data.Path,
		LeafType:  leafType,
		Alias:     alias,
	}
	if !h.editor.PaintEnter(surface, target) {
		return fmt.Errorf("cannot paint %q leaves", data.LeafType)
	}
	return nil
}

func (h *Hub) handlePickerExit(c *SurfaceClient, msg Message) error {
	h.editor.PaintExit()
	return nil
}

func (h *Hub) handleDraftEnter(c *SurfaceClient, msg Message) error {
	var data DraftEnterData
	if err := parseMessageData(msg.Data, &data); err != nil {
		return err
	}
	mode := editor.DraftMode(data.Mode)
	switch mode {
	case editor.DraftPath, editor.DraftPolygon, editor.DraftPoint:
	default:
		return fmt.Errorf("unknown draft mode %q", data.Mode)
	}

	surface := msg.Surface
	if surface == "" {
		surface = SurfaceMain
	}
	h.editor.DraftEnter(surface, editor.DraftTarget{
		ElementID: data.ElementID,
		Path:      data.Path,
	}, mode)
	return nil
}

func (h *Hub) handleDraftExit(c *SurfaceClient, msg Message) error {
	h.editor.DraftExit()
	return nil
}

func (h *Hub) handleDraftUndo(c *SurfaceClient, msg Message) error {
	h.editor.DraftUndo()
	return nil
}
