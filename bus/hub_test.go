package bus

import (
	"fmt"
	"io"
	"net"
	"sync"
	"terrastudio/editor"
	"terrastudio/territory"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// fakeConn is an in-memory SurfaceConn. in carries surface-to-host
// messages, out captures what the host writes back.
type fakeConn struct {
	in  chan Message
	out chan Message

	once   sync.Once
	closed chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan Message, 16),
		out:    make(chan Message, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case msg := <-c.in:
		*(v.(*Message)) = msg
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	msg, ok := v.(Message)
	if !ok {
		return fmt.Errorf("unexpected write type %T", v)
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.closed:
		return net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	if opts.LibraryDir == "" {
		opts.LibraryDir = t.TempDir()
	}
	h := NewHub(zaptest.NewLogger(t), opts)
	h.Start()
	t.Cleanup(h.Close)
	return h
}

func attachSurface(t *testing.T, h *Hub, role string) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	require.NotNil(t, h.Attach(conn))

	conn.in <- Message{Type: MessageTypeSurfaceAttach, Data: SurfaceAttachData{Role: role}}
	ack := waitMessage(t, conn, MessageTypeAttachAck)
	data, ok := ack.Data.(AttachAckData)
	require.True(t, ok)
	require.Equal(t, role, data.Role)
	return conn
}

func waitMessage(t *testing.T, conn *fakeConn, typ MessageType) Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-conn.out:
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return Message{}
		}
	}
}

func TestHubAttachAcknowledges(t *testing.T) {
	h := newTestHub(t, Options{})
	conn := newFakeConn()
	client := h.Attach(conn)
	require.NotNil(t, client)

	conn.in <- Message{
		Type:      MessageTypeSurfaceAttach,
		RequestID: "r1",
		Data:      SurfaceAttachData{Role: SurfaceMain},
	}

	ack := waitMessage(t, conn, MessageTypeAttachAck)
	assert.Equal(t, "r1", ack.RequestID)
	data, ok := ack.Data.(AttachAckData)
	require.True(t, ok)
	assert.Equal(t, client.id, data.ClientID)
	assert.Equal(t, SurfaceMain, data.Role)
	assert.Equal(t, SurfaceMain, client.Role())
}

func TestHubPaintFlowReachesAdminSurface(t *testing.T) {
	h := newTestHub(t, Options{})
	id := h.Editor().AddFlag("Kuru", []territory.Part{territory.GADM("IND")})

	adminConn := attachSurface(t, h, SurfaceAdmin)
	mainConn := attachSurface(t, h, SurfaceMain)

	mainConn.in <- Message{Type: MessageTypePickerEnter, Data: PickerEnterData{
		ElementID: id,
		Path:      []int{0},
		LeafType:  "gadm",
	}}

	seed := waitMessage(t, adminConn, MessageTypeSelectionOverlay)
	groups := seed.Data.(SelectionOverlayData).Groups
	require.Len(t, groups, 1)
	assert.Equal(t, editor.OverlayPending, groups[0].Op)
	assert.Equal(t, []string{"IND"}, groups[0].IDs)

	mainConn.in <- Message{Type: MessageTypeFeaturePick, Data: FeaturePickData{
		FeatureType: "gadm",
		ID:          "PAK",
	}}

	next := waitMessage(t, adminConn, MessageTypeSelectionOverlay)
	groups = next.Data.(SelectionOverlayData).Groups
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"IND", "PAK"}, groups[0].IDs)

	expr, ok := h.Editor().FlagExpr(id)
	require.True(t, ok)
	assert.Equal(t, []string{"IND", "PAK"}, expr[0].NormalizedValues())
}

func TestHubDraftClickPushesRoundedDraft(t *testing.T) {
	h := newTestHub(t, Options{})
	id := h.Editor().AddFlag("Ring", []territory.Part{territory.Polygon()})

	mainConn := attachSurface(t, h, SurfaceMain)

	mainConn.in <- Message{Type: MessageTypeDraftEnter, Data: DraftEnterData{
		ElementID: id,
		Path:      []int{0},
		Mode:      "polygon",
	}}
	first := waitMessage(t, mainConn, MessageTypeSetDraft)
	firstData := first.Data.(SetDraftData)
	assert.Empty(t, firstData.Points)
	assert.Equal(t, "polygon", firstData.ShapeType)

	mainConn.in <- Message{Type: MessageTypeDraftClick, Data: DraftClickData{Lat: 10.123456, Lng: 20}}
	second := waitMessage(t, mainConn, MessageTypeSetDraft)
	secondData := second.Data.(SetDraftData)
	require.Len(t, secondData.Points, 1)
	assert.Equal(t, territory.LatLng{10.1235, 20}, secondData.Points[0])
}

func TestHubSourceRoundTripOverBus(t *testing.T) {
	h := newTestHub(t, Options{})
	conn := attachSurface(t, h, SurfaceMain)

	conn.in <- Message{Type: MessageTypeSyncSource, Data: SyncSourceData{
		Source: "Flag(value=gadm(\"IND\"), label=\"Bharata\")\n",
	}}
	installed := waitMessage(t, conn, MessageTypeWorkspaceInstalled)
	assert.Equal(t, 1, installed.Data.(WorkspaceInstalledData).Elements)

	conn.in <- Message{Type: MessageTypeGetSource, RequestID: "req-9"}
	reply := waitMessage(t, conn, MessageTypeSourceText)
	assert.Equal(t, "req-9", reply.RequestID)
	assert.Equal(t, "Flag(value=gadm(\"IND\"), label=\"Bharata\")\n", reply.Data.(SourceTextData).Source)
}

func TestHubRunScriptRepliesWithGeneratedSource(t *testing.T) {
	h := newTestHub(t, Options{})
	conn := attachSurface(t, h, SurfaceMain)

	conn.in <- Message{Type: MessageTypeRunScript, RequestID: "run-1", Data: RunScriptData{
		Source: `studio.addFlag("Bharata", gadm("IND"))`,
	}}

	reply := waitMessage(t, conn, MessageTypeScriptResult)
	assert.Equal(t, "run-1", reply.RequestID)
	assert.Contains(t, reply.Data.(ScriptResultData).Source, `Flag(value=gadm("IND"), label="Bharata")`)

	installed := waitMessage(t, conn, MessageTypeWorkspaceInstalled)
	assert.Equal(t, 1, installed.Data.(WorkspaceInstalledData).Elements)
}

func TestHubHandlerErrorsAnswerWithRequestID(t *testing.T) {
	h := newTestHub(t, Options{})
	conn := attachSurface(t, h, SurfaceMain)

	conn.in <- Message{Type: MessageTypeFeaturePick, RequestID: "req-3", Data: FeaturePickData{
		FeatureType: "gadm",
		ID:          "IND",
		HoverMode:   "banana",
	}}

	errMsg := waitMessage(t, conn, MessageTypeError)
	assert.Equal(t, "req-3", errMsg.RequestID)
	assert.Contains(t, errMsg.Error, "hover mode")
}

func TestHubDropsUnknownMessageTypes(t *testing.T) {
	h := newTestHub(t, Options{})
	conn := attachSurface(t, h, SurfaceMain)

	conn.in <- Message{Type: "warp_drive"}
	conn.in <- Message{Type: MessageTypeGetSource, RequestID: "after"}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-conn.out:
			require.NotEqual(t, MessageTypeError, msg.Type)
			if msg.Type == MessageTypeSourceText {
				assert.Equal(t, "after", msg.RequestID)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for source reply")
		}
	}
}

func TestHubBroadcastsHostStats(t *testing.T) {
	h := newTestHub(t, Options{StatsInterval: 25 * time.Millisecond})
	conn := attachSurface(t, h, SurfaceMain)

	msg := waitMessage(t, conn, MessageTypeHostStats)
	stats := msg.Data.(HostStatsData)
	assert.Equal(t, 1, stats.Surfaces)
	assert.Greater(t, stats.Goroutines, 0)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, int64(0))
}

func TestHubShutdownTearsDownPumps(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHub(zaptest.NewLogger(t), Options{LibraryDir: t.TempDir()})
	h.Start()
	conn := newFakeConn()
	require.NotNil(t, h.Attach(conn))
	conn.in <- Message{Type: MessageTypeSurfaceAttach, Data: SurfaceAttachData{Role: SurfaceMain}}
	waitMessage(t, conn, MessageTypeAttachAck)

	h.Close()

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed on shutdown")
	}
}
