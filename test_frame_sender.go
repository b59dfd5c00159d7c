package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/mrmagicbg/tpms-radio-service/internal/protocol"
)

// test_frame_sender sends synthetic Manchester-encoded TPMS frames to a
// running tpmsd instance. Useful for exercising the full ingest path
// without radio hardware.

func schraderFrame(sensorID uint32, pressureKPa float64, tempC float64, batteryLow bool) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], sensorID)
	if batteryLow {
		payload[4] = 0x80
	}
	binary.BigEndian.PutUint16(payload[5:7], uint16(pressureKPa*4))
	payload[7] = byte(tempC + 40)
	return protocol.ManchesterEncode(payload)
}

func siemensFrame(sensorID uint32, pressureKPa float64, tempC float64, batteryLow bool) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], sensorID)
	binary.BigEndian.PutUint16(payload[4:6], uint16((pressureKPa-100)*100))
	payload[6] = byte(tempC + 50)
	if batteryLow {
		payload[7] = 0x01
	}
	return protocol.ManchesterEncode(payload)
}

func main() {
	target := flag.String("target", "127.0.0.1:5577", "UDP address of the tpmsd frame server")
	count := flag.Int("count", 10, "Number of frames to send")
	interval := flag.Duration("interval", 500*time.Millisecond, "Delay between frames")
	flush := flag.Bool("flush", true, "Send a flush packet after the frames")
	flag.Parse()

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("Failed to resolve target address: %v", err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("Failed to dial UDP: %v", err)
	}
	defer conn.Close()

	fmt.Printf("Sending %d frames to %s\n", *count, *target)

	frames := [][]byte{
		schraderFrame(0x12345678, 220, 25, false),
		schraderFrame(0x12345679, 210, 27, true),
		siemensFrame(0xAABBCCDD, 230, 30, false),
		siemensFrame(0xAABBCCDE, 180, 22, true),
		{0xDE, 0xAD, 0xBE, 0xEF, 0x00}, // undecodable, exercises the fallback path
	}

	for i := 0; i < *count; i++ {
		raw := frames[i%len(frames)]
		rssi := int8(-50 - i%40)
		lqi := uint8(80 + i%48)

		packet, err := protocol.EncodeDescriptor(protocol.PacketTypeFrame, rssi, lqi, raw)
		if err != nil {
			log.Fatalf("Failed to encode descriptor: %v", err)
		}

		if _, err := conn.Write(packet); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}

		fmt.Printf("Sent frame %d: %d raw bytes, rssi=%d, lqi=%d\n", i+1, len(raw), rssi, lqi)
		time.Sleep(*interval)
	}

	if *flush {
		packet, err := protocol.EncodeDescriptor(protocol.PacketTypeFlush, 0, 0, nil)
		if err != nil {
			log.Fatalf("Failed to encode flush packet: %v", err)
		}
		if _, err := conn.Write(packet); err != nil {
			log.Fatalf("Failed to send flush packet: %v", err)
		}
		fmt.Println("Sent flush packet")
	}

	fmt.Println("Done")
}
