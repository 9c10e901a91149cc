package inventory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"pingboard/internal/apiclient"
	"pingboard/internal/localstore"
	"pingboard/internal/models"
)

// fakeRemote is an in-memory stand-in for the API client. Setting offline
// makes every call fail, mimicking a dead server; setting reject makes
// AddDevice answer like a 400.
type fakeRemote struct {
	offline bool
	reject  bool
	devices []models.Device
	nextID  int
	deleted []string // refs DeleteDevice was called with
}

var errOffline = errors.New("connection refused")

func (f *fakeRemote) GetDevices(ctx context.Context) ([]models.Device, error) {
	if f.offline {
		return nil, errOffline
	}
	out := make([]models.Device, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeRemote) AddDevice(ctx context.Context, d models.Device) (*models.Device, error) {
	if f.offline {
		return nil, errOffline
	}
	if f.reject {
		return nil, fmt.Errorf("add device %q: status 400: %w", d.Name, apiclient.ErrRejected)
	}
	f.nextID++
	d.ID = "srv-" + string(rune('0'+f.nextID))
	f.devices = append(f.devices, d)
	return &d, nil
}

// DeleteDevice resolves IDs only, like the real server.
func (f *fakeRemote) DeleteDevice(ctx context.Context, ref string) error {
	if f.offline {
		return errOffline
	}
	f.deleted = append(f.deleted, ref)
	for i, d := range f.devices {
		if d.ID == ref {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete device %q: %w", ref, apiclient.ErrNotFound)
}

func setupCache(t *testing.T) (*Cache, *fakeRemote, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	remote := &fakeRemote{}
	return NewCache(store, remote), remote, store
}

func dev(name, ip string) models.Device {
	return models.Device{Name: name, IP: ip, Sensors: []models.SensorType{models.SensorPing}}
}

func TestLoadRemoteFirst(t *testing.T) {
	cache, remote, store := setupCache(t)
	remote.devices = []models.Device{dev("gateway", "192.168.1.1")}

	got := cache.Load(context.Background())
	if len(got) != 1 || got[0].Name != "gateway" {
		t.Fatalf("Load: got %+v", got)
	}

	// The remote result must be persisted locally
	var persisted []models.Device
	if !store.GetJSON(localstore.KeyDevices, &persisted) {
		t.Fatal("device cache not persisted")
	}
	if len(persisted) != 1 || persisted[0].Name != "gateway" {
		t.Errorf("persisted: got %+v", persisted)
	}
}

func TestLoadFallsBackToLocal(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{dev("gateway", "192.168.1.1"), dev("nas", "192.168.1.50")}
	cache.Load(context.Background())

	remote.offline = true
	got := cache.Load(context.Background())
	if len(got) != 2 {
		t.Fatalf("offline Load: got %d devices, want 2", len(got))
	}
}

func TestLoadEmptyWhenNothingAnywhere(t *testing.T) {
	cache, remote, store := setupCache(t)
	remote.offline = true

	got := cache.Load(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("Load: got %+v, want empty slice", got)
	}

	// An empty cache must still be initialized in the store
	raw := store.Get(localstore.KeyDevices)
	if raw != "[]" {
		t.Errorf("persisted: got %q, want []", raw)
	}
}

func TestSynchronizeNoChange(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{dev("gateway", "192.168.1.1")}
	before := cache.Load(context.Background())

	if cache.Synchronize(context.Background()) {
		t.Error("Synchronize reported change with identical server state")
	}
	if !reflect.DeepEqual(before, cache.Devices()) {
		t.Error("cache mutated by no-op synchronize")
	}
}

func TestSynchronizeFullReplacement(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{dev("gateway", "192.168.1.1")}
	cache.Load(context.Background())

	remote.devices = []models.Device{dev("nas", "192.168.1.50")}
	if !cache.Synchronize(context.Background()) {
		t.Fatal("Synchronize did not report change")
	}
	got := cache.Devices()
	if len(got) != 1 || got[0].Name != "nas" {
		t.Errorf("cache after sync: got %+v, want only nas", got)
	}
}

func TestSynchronizeOfflineLeavesCache(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{dev("gateway", "192.168.1.1")}
	cache.Load(context.Background())

	remote.offline = true
	if cache.Synchronize(context.Background()) {
		t.Error("offline Synchronize reported change")
	}
	if len(cache.Devices()) != 1 {
		t.Error("offline Synchronize mutated cache")
	}
}

func TestAddOnline(t *testing.T) {
	cache, remote, _ := setupCache(t)
	cache.Load(context.Background())

	res := cache.Add(context.Background(), dev("printer", "192.168.1.77"))
	if !res.OK || res.LocalOnly {
		t.Fatalf("Add: got %+v", res)
	}
	got := cache.Devices()
	if len(got) != 1 || got[0].ID == "" {
		t.Errorf("cache after add: got %+v, want server-assigned ID", got)
	}
	if len(remote.devices) != 1 {
		t.Error("device not created on server")
	}
}

func TestOfflineAddSupersededByRemote(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{dev("gateway", "192.168.1.1")}
	cache.Load(context.Background())

	remote.offline = true
	res := cache.Add(context.Background(), dev("printer", "192.168.1.77"))
	if !res.OK || !res.LocalOnly {
		t.Fatalf("offline Add: got %+v, want local-only success", res)
	}

	// Still visible from the local fallback while offline
	got := cache.Load(context.Background())
	if len(got) != 2 {
		t.Fatalf("offline Load after add: got %d devices, want 2", len(got))
	}

	// Connectivity returns; the server never saw the printer
	remote.offline = false
	got = cache.Load(context.Background())
	if len(got) != 1 || got[0].Name != "gateway" {
		t.Errorf("online Load: got %+v, want local-only add superseded", got)
	}
}

func TestRemoveByNameIDAndIndex(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{
		{ID: "srv-a", Name: "gateway", IP: "192.168.1.1"},
		{ID: "srv-b", Name: "nas", IP: "192.168.1.50"},
		{ID: "srv-c", Name: "printer", IP: "192.168.1.77"},
	}
	cache.Load(context.Background())

	if res := cache.Remove(context.Background(), "srv-b"); !res.OK {
		t.Fatalf("Remove by ID: %+v", res)
	}
	if res := cache.Remove(context.Background(), "printer"); !res.OK {
		t.Fatalf("Remove by name: %+v", res)
	}
	if len(cache.Devices()) != 1 {
		t.Fatalf("cache: got %+v", cache.Devices())
	}
}

func TestOfflineRemove(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{{ID: "srv-a", Name: "gateway", IP: "192.168.1.1"}}
	cache.Load(context.Background())

	remote.offline = true
	res := cache.Remove(context.Background(), "gateway")
	if !res.OK || !res.LocalOnly {
		t.Fatalf("offline Remove: got %+v, want local-only success", res)
	}
	if len(cache.Devices()) != 0 {
		t.Error("device still in cache after local-only remove")
	}
}

func TestRemoveByNameResolvesServerID(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{{ID: "srv-a", Name: "gateway", IP: "192.168.1.1"}}
	cache.Load(context.Background())

	res := cache.Remove(context.Background(), "gateway")
	if !res.OK || res.LocalOnly {
		t.Fatalf("Remove by name: got %+v, want remote success", res)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "srv-a" {
		t.Errorf("server addressed with %v, want [srv-a]", remote.deleted)
	}
	if len(remote.devices) != 0 {
		t.Error("device still on server")
	}

	// The removal must survive the next full sync
	if cache.Synchronize(context.Background()) {
		t.Error("Synchronize reported change after a clean remove")
	}
	if got := cache.Devices(); len(got) != 0 {
		t.Errorf("device resurrected by sync: %+v", got)
	}
}

func TestRemoveDeviceServerAlreadyLost(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{{ID: "srv-a", Name: "gateway", IP: "192.168.1.1"}}
	cache.Load(context.Background())

	// Removed behind the cache's back, e.g. by another dashboard
	remote.devices = nil

	res := cache.Remove(context.Background(), "gateway")
	if !res.OK || res.LocalOnly {
		t.Fatalf("Remove of server-lost device: got %+v, want plain success", res)
	}
	if len(cache.Devices()) != 0 {
		t.Error("device still in cache")
	}
}

func TestRemoveUnknownRef(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{{ID: "srv-a", Name: "gateway", IP: "192.168.1.1"}}
	cache.Load(context.Background())

	if res := cache.Remove(context.Background(), "no-such-device"); res.OK {
		t.Fatalf("Remove of unknown ref: got %+v, want OK=false", res)
	}
	if len(remote.deleted) != 0 {
		t.Errorf("server contacted for unknown ref: %v", remote.deleted)
	}
	if len(cache.Devices()) != 1 {
		t.Error("cache mutated by failed remove")
	}
}

func TestAddRejectedNotKeptLocally(t *testing.T) {
	cache, remote, _ := setupCache(t)
	cache.Load(context.Background())

	remote.reject = true
	res := cache.Add(context.Background(), dev("printer", "192.168.1.77"))
	if res.OK || res.LocalOnly {
		t.Fatalf("rejected Add: got %+v, want outright failure", res)
	}
	if len(cache.Devices()) != 0 {
		t.Error("rejected device kept in cache")
	}
}

func TestCategories(t *testing.T) {
	cache, remote, _ := setupCache(t)
	remote.devices = []models.Device{
		{Name: "gw", IP: "1.1.1.1", Category: "Network"},
		{Name: "nas", IP: "1.1.1.2", Category: "Storage"},
		{Name: "sw", IP: "1.1.1.3", Category: "Network"},
		{Name: "misc", IP: "1.1.1.4"},
	}
	cache.Load(context.Background())

	got := cache.Categories()
	want := []string{"Network", "Storage"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories: got %v, want %v", got, want)
	}
}
