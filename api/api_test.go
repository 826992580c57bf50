package api_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"testing"

	"github.com/momentics/puki/api"
)

func TestWirePeerRoundTrip(t *testing.T) {
	peers := []string{"127.0.0.1:8080", "10.1.2.3:1", "0.0.0.0:0", "255.255.255.255:65535"}
	for _, s := range peers {
		p := netip.MustParseAddrPort(s)
		ip, port := api.PeerToWire(p)
		if got := api.WirePeer(ip, port); got != p {
			t.Errorf("WirePeer(PeerToWire(%s)) = %s", p, got)
		}
	}
}

func TestPeerToWireNetworkOrder(t *testing.T) {
	ip, port := api.PeerToWire(netip.MustParseAddrPort("1.2.3.4:258"))
	// Network order: the in-memory layout starts with the first octet.
	var ipMem [4]byte
	binary.NativeEndian.PutUint32(ipMem[:], ip)
	var portMem [2]byte
	binary.NativeEndian.PutUint16(portMem[:], port)
	if ipMem != [4]byte{1, 2, 3, 4} {
		t.Errorf("ip memory = %v, want [1 2 3 4]", ipMem)
	}
	if portMem != [2]byte{1, 2} {
		t.Errorf("port memory = %v, want [1 2]", portMem)
	}
}

func TestPeerToWireIPv4Mapped(t *testing.T) {
	p := netip.MustParseAddrPort("[::ffff:192.0.2.7]:99")
	ip, port := api.PeerToWire(p)
	want := netip.MustParseAddrPort("192.0.2.7:99")
	if got := api.WirePeer(ip, port); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want api.ExitStatus
	}{
		{nil, api.Stopped},
		{api.NewError(api.ErrCodeBindFailed, "listen"), api.BindFailed},
		{api.NewError(api.ErrCodeCancellationUnavailable, "eventfd"), api.CancellationUnavailable},
		{api.NewError(api.ErrCodeResourceExhausted, "eventfd"), api.CancellationUnavailable},
		{api.NewError(api.ErrCodeMultiplexerFatal, "epoll_wait"), api.Fatal},
		{errors.New("foreign"), api.Fatal},
	}
	for _, tt := range tests {
		if got := api.StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if api.Stopped.Code() != 0 {
		t.Error("Stopped must map to exit code 0")
	}
	for _, s := range []api.ExitStatus{api.BindFailed, api.CancellationUnavailable, api.Fatal} {
		if s.Code() == 0 {
			t.Errorf("%v has exit code 0", s)
		}
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("address in use")
	err := api.WrapError(api.ErrCodeBindFailed, "listen", cause).WithContext("port", 80)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is lost the cause")
	}
	if got := api.CodeOf(err); got != api.ErrCodeBindFailed {
		t.Fatalf("CodeOf = %v", got)
	}
	if got := err.Error(); got != "listen: address in use (context: map[port:80])" {
		t.Fatalf("Error() = %q", got)
	}
	if api.CodeOf(nil) != api.ErrCodeOK {
		t.Fatal("CodeOf(nil) should be OK")
	}
}

func TestCodeOfForeignErrors(t *testing.T) {
	tests := []struct {
		err  error
		want api.ErrorCode
	}{
		{fmt.Errorf("reactor: %w", api.ErrNotSupported), api.ErrCodeNotSupported},
		{fmt.Errorf("cpu 9999: %w", api.ErrInvalidArgument), api.ErrCodeInvalidArgument},
		{errors.New("boom"), api.ErrCodeInternal},
		// An explicit code wins over the sentinel it wraps.
		{api.WrapError(api.ErrCodeBindFailed, "bind", api.ErrInvalidArgument), api.ErrCodeBindFailed},
	}
	for _, tt := range tests {
		if got := api.CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
		if got := api.StatusOf(tt.err); tt.want != api.ErrCodeBindFailed && got != api.Fatal {
			t.Errorf("StatusOf(%v) = %v, want Fatal", tt.err, got)
		}
	}
}

func TestLifecycleEventDispatch(t *testing.T) {
	var got []string
	h := api.HandlerFuncs{
		Connect: func(id api.ConnID, _ netip.AddrPort) { got = append(got, "connect") },
		Data:    func(id api.ConnID, d []byte) { got = append(got, "data:"+string(d)) },
		Close:   func(id api.ConnID) { got = append(got, "close") },
	}
	for _, ev := range []api.LifecycleEvent{
		{Kind: api.ConnectEvent, ID: 3},
		{Kind: api.DataEvent, ID: 3, Data: []byte("x")},
		{Kind: api.CloseEvent, ID: 3},
	} {
		ev.Dispatch(h)
	}
	if len(got) != 3 || got[0] != "connect" || got[1] != "data:x" || got[2] != "close" {
		t.Fatalf("dispatch trace = %v", got)
	}
}
