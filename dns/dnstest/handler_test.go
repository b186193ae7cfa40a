package dnstest

import (
	"encoding/binary"
	"net"
	"testing"
)

// query builds a minimal single-question request.
func query(id uint16, name string, qType uint16) []byte {
	msg := make([]byte, headerSize)
	binary.BigEndian.PutUint16(msg[headerIDOffset:], id)
	binary.BigEndian.PutUint16(msg[headerFlagsOffset:], flagRD)
	binary.BigEndian.PutUint16(msg[headerQDCountOffset:], 1)
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			msg = append(msg, byte(i-start))
			msg = append(msg, name[start:i]...)
			start = i + 1
		}
	}
	msg = append(msg, 0)
	msg = binary.BigEndian.AppendUint16(msg, qType)
	msg = binary.BigEndian.AppendUint16(msg, classIN)
	return msg
}

func TestDecodeDomain(t *testing.T) {
	msg := query(1, "www.google.com", typeA)
	domain, offset, err := decodeDomain(msg, headerSize)
	if err != nil {
		t.Fatalf("decodeDomain err=%v", err)
	}
	if domain != "www.google.com" {
		t.Fatalf("domain=%q", domain)
	}
	if offset != len(msg)-4 {
		t.Fatalf("offset=%d, want %d", offset, len(msg)-4)
	}

	if _, _, err := decodeDomain([]byte{0xC0}, 0); err == nil {
		t.Fatalf("expected error for truncated pointer")
	}
	if _, _, err := decodeDomain([]byte{0xC0, 0x00}, 0); err == nil {
		t.Fatalf("expected error for self-referencing pointer")
	}
}

func TestHandleKnownName(t *testing.T) {
	s := &Server{records: map[string]net.IP{}}
	s.records["www.google.com"] = net.IPv4(10, 0, 0, 7).To4()

	resp := s.handleDNSRequest(query(0xBEEF, "www.google.com", typeA))
	if resp == nil {
		t.Fatalf("expected response")
	}
	if id := binary.BigEndian.Uint16(resp[headerIDOffset:]); id != 0xBEEF {
		t.Fatalf("id=%#x", id)
	}
	flags := binary.BigEndian.Uint16(resp[headerFlagsOffset:])
	if flags&flagQR == 0 || flags&0x000F != 0 {
		t.Fatalf("flags=%#x", flags)
	}
	if an := binary.BigEndian.Uint16(resp[headerANCountOffset:]); an != 1 {
		t.Fatalf("ancount=%d", an)
	}
	ip := resp[len(resp)-4:]
	if ip[0] != 10 || ip[3] != 7 {
		t.Fatalf("ip=%v", ip)
	}
}

func TestHandleUnknownNameIsNXDOMAIN(t *testing.T) {
	s := &Server{records: map[string]net.IP{}}

	resp := s.handleDNSRequest(query(7, "giris.dpu.edu.tr", typeA))
	if resp == nil {
		t.Fatalf("expected response")
	}
	flags := binary.BigEndian.Uint16(resp[headerFlagsOffset:])
	if flags&0x000F != rcodeNameError {
		t.Fatalf("rcode=%d", flags&0x000F)
	}
	if an := binary.BigEndian.Uint16(resp[headerANCountOffset:]); an != 0 {
		t.Fatalf("ancount=%d", an)
	}
}

func TestHandleIgnoresResponses(t *testing.T) {
	s := &Server{records: map[string]net.IP{}}
	msg := query(7, "www.google.com", typeA)
	binary.BigEndian.PutUint16(msg[headerFlagsOffset:], flagQR)
	if resp := s.handleDNSRequest(msg); resp != nil {
		t.Fatalf("expected nil for a response packet")
	}
}
