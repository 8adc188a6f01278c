package mss

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/ipv4"

	"github.com/malbeclabs/pathscope/internal/netutil"
)

var (
	ErrRawCapabilityMissing = errors.New("requires CAP_NET_RAW (or root). grant with: sudo setcap cap_net_raw+ep /path/to/pathscope")
	ErrRawUnsupported       = errors.New("raw segment size probing is only supported on linux")
)

const (
	synTTL    = 64
	synSeq    = 1000
	synWindow = 65535
)

// RawConn is the subset of *ipv4.RawConn used to send and receive probes.
type RawConn interface {
	WriteTo(h *ipv4.Header, b []byte, cm *ipv4.ControlMessage) error
	ReadFrom(b []byte) (*ipv4.Header, []byte, *ipv4.ControlMessage, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

type RawSYNProberConfig struct {
	Logger  *slog.Logger
	Router  netutil.Router
	Clock   clockwork.Clock
	Timeout time.Duration

	// Listen opens the raw socket for one probe. Defaults to an ip4:tcp
	// socket wrapped in ipv4.RawConn.
	Listen func() (RawConn, error)
}

func (c *RawSYNProberConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Router == nil {
		c.Router = netutil.NewRouter()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultProbeTimeout
	}
	if c.Listen == nil {
		c.Listen = listenRawTCP
	}
	return nil
}

// RawSYNProber crafts SYN segments with an explicit MSS option and the DF bit
// set, and watches the raw socket for the matching reply.
type RawSYNProber struct {
	log *slog.Logger
	cfg *RawSYNProberConfig
}

func NewRawSYNProber(cfg *RawSYNProberConfig) (*RawSYNProber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RawSYNProber{log: cfg.Logger, cfg: cfg}, nil
}

func (p *RawSYNProber) Probe(ctx context.Context, dst net.IP, port int, mss int) (bool, error) {
	src, err := p.cfg.Router.SourceFor(dst)
	if err != nil {
		return false, err
	}

	conn, err := p.cfg.Listen()
	if err != nil {
		return false, err
	}
	defer conn.Close()

	sport := 1024 + rand.IntN(65536-1024)
	h, b, err := BuildSYN(src, dst, sport, port, mss)
	if err != nil {
		return false, err
	}
	if err := conn.WriteTo(h, b, nil); err != nil {
		return false, fmt.Errorf("failed to send syn: %w", err)
	}

	deadline := p.cfg.Clock.Now().Add(p.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return false, fmt.Errorf("failed to set read deadline: %w", err)
	}

	buf := make([]byte, 1500)
	for {
		rh, payload, _, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				p.log.Debug("mss: no reply to syn", "dst", dst, "mss", mss)
				return false, nil
			}
			return false, fmt.Errorf("failed to read reply: %w", err)
		}
		switch classifyReply(rh, payload, dst, sport, port) {
		case replySYNACK:
			return true, nil
		case replyOtherTCP:
			return false, nil
		}
	}
}

func listenRawTCP() (RawConn, error) {
	c, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket: %w", err)
	}
	r, err := ipv4.NewRawConn(c)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create raw conn: %w", err)
	}
	return r, nil
}

// BuildSYN returns the IPv4 header and TCP segment of a SYN from src:sport to
// dst:dport advertising mss.
func BuildSYN(src, dst net.IP, sport, dport, mss int) (*ipv4.Header, []byte, error) {
	src4, dst4 := src.To4(), dst.To4()
	if src4 == nil || dst4 == nil {
		return nil, nil, errors.New("syn probe requires ipv4 addresses")
	}
	if mss <= 0 || mss > 65535 {
		return nil, nil, fmt.Errorf("mss %d out of range", mss)
	}

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      synTTL,
		Flags:    layers.IPv4DontFragment,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    src4,
		DstIP:    dst4,
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(sport),
		DstPort: layers.TCPPort(dport),
		Seq:     synSeq,
		SYN:     true,
		Window:  synWindow,
		Options: []layers.TCPOption{{
			OptionType:   layers.TCPOptionKindMSS,
			OptionLength: 4,
			OptionData:   binary.BigEndian.AppendUint16(nil, uint16(mss)),
		}},
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, nil, fmt.Errorf("failed to set checksum layer: %w", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, tcp); err != nil {
		return nil, nil, fmt.Errorf("failed to serialize syn: %w", err)
	}
	b := buf.Bytes()

	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(b),
		Flags:    ipv4.DontFragment,
		TTL:      synTTL,
		Protocol: int(layers.IPProtocolTCP),
		Src:      src4,
		Dst:      dst4,
	}
	return h, b, nil
}

type reply int

const (
	replyUnrelated reply = iota
	replySYNACK
	replyOtherTCP
)

// classifyReply decides whether a packet read from the raw socket answers the
// probe sent from sport to dst:dport.
func classifyReply(h *ipv4.Header, payload []byte, dst net.IP, sport, dport int) reply {
	if h == nil || !h.Src.Equal(dst) {
		return replyUnrelated
	}
	pkt := gopacket.NewPacket(payload, layers.LayerTypeTCP, gopacket.NoCopy)
	tcp, ok := pkt.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok {
		return replyUnrelated
	}
	if int(tcp.SrcPort) != dport || int(tcp.DstPort) != sport {
		return replyUnrelated
	}
	if tcp.SYN && tcp.ACK {
		return replySYNACK
	}
	return replyOtherTCP
}
