// Package mcast creates the UDP sockets used by the prober and responder.
//
// Two socket shapes exist: a send-capable socket with a configurable
// multicast TTL, used by the prober to emit probes and receive acks on the
// same port, and a group-membership socket bound to the shared port and
// joined to the group, used by the responder.
package mcast

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// NewSenderConn creates the prober's socket. The socket is bound to an
// ephemeral local port; acks come back to that same port, so no separate
// receive socket is needed. ttl bounds the L3 hop propagation of probes.
func NewSenderConn(ttl int) (net.PacketConn, error) {
	if ttl < 1 || ttl > 255 {
		return nil, fmt.Errorf("mcast: ttl must be between 1 and 255, got %d", ttl)
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("mcast: create sender socket: %w", err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mcast: set multicast TTL: %w", err)
	}

	return conn, nil
}

// NewResponderConn creates the responder's socket: bound to port with
// address reuse enabled, joined to group on every multicast-capable
// interface. Reuse lets several responders share a host during testing.
func NewResponderConn(group net.IP, port int) (net.PacketConn, error) {
	if group == nil || group.To4() == nil || !group.IsMulticast() {
		return nil, fmt.Errorf("mcast: %s is not an IPv4 multicast group", group)
	}

	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("mcast: bind port %d: %w", port, err)
	}

	p := ipv4.NewPacketConn(conn)
	groupAddr := &net.UDPAddr{IP: group.To4()}

	joined := 0
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, ifi := range ifaces {
			if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
				continue
			}
			ifi := ifi
			if err := p.JoinGroup(&ifi, groupAddr); err == nil {
				joined++
			}
		}
	}

	// Fall back to the system default multicast interface.
	if joined == 0 {
		if err := p.JoinGroup(nil, groupAddr); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mcast: join group %s: %w", group, err)
		}
	}

	return conn, nil
}
