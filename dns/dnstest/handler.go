package dnstest

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// handleDNSRequest answers a single-question query. Known names get their A
// record (and an empty AAAA answer); unknown names get NXDOMAIN.
func (s *Server) handleDNSRequest(request []byte) []byte {
	if len(request) < headerSize {
		return nil
	}

	flags := binary.BigEndian.Uint16(request[headerFlagsOffset : headerFlagsOffset+2])
	qdCount := binary.BigEndian.Uint16(request[headerQDCountOffset : headerQDCountOffset+2])

	// Only handle standard queries
	if (flags&flagQR) != 0 || qdCount == 0 {
		return nil
	}

	domain, offset, err := decodeDomain(request, headerSize)
	if err != nil {
		return nil
	}
	if offset+4 > len(request) {
		return nil
	}
	qType := binary.BigEndian.Uint16(request[offset : offset+2])
	qClass := binary.BigEndian.Uint16(request[offset+2 : offset+4])
	offset += 4

	// Response reuses the header and question; everything after is rewritten.
	response := make([]byte, 512)
	copy(response, request[:offset])

	respFlags := uint16(flagQR | flagAA | flagRA | (flags & flagRD))
	binary.BigEndian.PutUint16(response[headerQDCountOffset:headerQDCountOffset+2], 1)
	binary.BigEndian.PutUint16(response[headerANCountOffset:headerANCountOffset+2], 0)
	binary.BigEndian.PutUint16(response[headerNSCountOffset:headerNSCountOffset+2], 0)
	binary.BigEndian.PutUint16(response[headerARCountOffset:headerARCountOffset+2], 0)

	ip, known := s.lookup(domain)
	if !known {
		respFlags |= rcodeNameError
		binary.BigEndian.PutUint16(response[headerFlagsOffset:headerFlagsOffset+2], respFlags)
		return response[:offset]
	}
	binary.BigEndian.PutUint16(response[headerFlagsOffset:headerFlagsOffset+2], respFlags)

	if qType != typeA || qClass != classIN || ip == nil {
		// NOERROR with no answers (AAAA and anything else)
		return response[:offset]
	}

	binary.BigEndian.PutUint16(response[headerANCountOffset:headerANCountOffset+2], 1)

	response[offset] = 0xC0   // Pointer to domain name
	response[offset+1] = 0x0C // Offset of the question name
	offset += 2

	binary.BigEndian.PutUint16(response[offset:offset+2], typeA)
	binary.BigEndian.PutUint16(response[offset+2:offset+4], classIN)
	offset += 4

	binary.BigEndian.PutUint32(response[offset:offset+4], 1) // TTL, keep caches cold
	binary.BigEndian.PutUint16(response[offset+4:offset+6], 4)
	offset += 6

	copy(response[offset:offset+4], ip)
	offset += 4

	return response[:offset]
}

// decodeDomain decodes a domain name from a DNS message using the DNS compression scheme
func decodeDomain(msg []byte, offset int) (string, int, error) {
	var parts []string

	for {
		if offset >= len(msg) {
			return "", offset, fmt.Errorf("offset out of bounds during domain parsing")
		}

		length := int(msg[offset])
		offset++

		// Compression pointer (first two bits are '11')
		if length&0xC0 == 0xC0 {
			if offset >= len(msg) {
				return "", offset, fmt.Errorf("compression pointer incomplete")
			}
			pointerOffset := ((length & 0x3F) << 8) | int(msg[offset])
			offset++
			if pointerOffset >= offset-2 {
				return "", offset, fmt.Errorf("compression pointer does not point backwards")
			}

			suffix, _, err := decodeDomain(msg, pointerOffset)
			if err != nil {
				return "", offset, err
			}
			return strings.Join(append(parts, suffix), "."), offset, nil
		}

		if length == 0 {
			break
		}

		if offset+length > len(msg) {
			return "", offset, fmt.Errorf("domain name label exceeds message bounds")
		}
		parts = append(parts, string(msg[offset:offset+length]))
		offset += length
	}

	return strings.Join(parts, "."), offset, nil
}
