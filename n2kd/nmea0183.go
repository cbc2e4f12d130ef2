package n2kd

import (
	"fmt"
	"math"
)

// talkerID encodes an 8-bit CAN source address as the two-letter NMEA 0183
// talker ID (spec §4.G: "(src>>4)+'A', (src&0xF)+'A'").
func talkerID(src uint8) string {
	return string([]byte{byte(src>>4) + 'A', byte(src&0xF) + 'A'})
}

// checksum computes the NMEA 0183 XOR checksum of body (the sentence text
// between '$'/'!' and '*', exclusive).
func checksum(body string) byte {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return c
}

// sentence assembles "$<talker><kind><fields>*<CC>\r\n" with its checksum.
func sentence(talker, kind, fields string) string {
	body := talker + kind + fields
	return fmt.Sprintf("$%s*%02X\r\n", body, checksum(body))
}

// decodedMessage is the subset of a decoded PGN message derive needs.
type decodedMessage struct {
	PGN    int
	Src    uint8
	Fields map[string]interface{}
}

// Derive converts a decoded message into its NMEA 0183 sentence(s), per
// spec §4.G's illustrative PGN table. PGNs with no listed mapping yield no
// sentences (nil, not an error) since the table is explicitly
// non-exhaustive.
func Derive(msg decodedMessage) []string {
	talker := talkerID(msg.Src)
	switch msg.PGN {
	case 127250: // Vessel Heading -> $xxHDG
		return deriveHDG(talker, msg.Fields)
	case 130306: // Wind Data -> $xxMWV
		return deriveMWV(talker, msg.Fields)
	case 128267: // Water Depth -> $xxDBT (no DBK/DBS)
		return deriveDBT(talker, msg.Fields)
	case 128259: // Speed -> $xxVHW
		return deriveVHW(talker, msg.Fields)
	case 127245: // Rudder -> $xxRSA
		return deriveRSA(talker, msg.Fields)
	case 129025: // Position Rapid Update -> $xxGLL
		return deriveGLL(talker, msg.Fields)
	case 129029: // GNSS Position Data -> $xxGLL (no GGA)
		return deriveGLL(talker, msg.Fields)
	case 129026: // COG/SOG Rapid Update -> $xxVTG
		return deriveVTG(talker, msg.Fields)
	default:
		return nil
	}
}

func asFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func deriveHDG(talker string, f map[string]interface{}) []string {
	heading, ok := asFloat(f["Heading"])
	if !ok {
		return nil
	}
	degrees := heading * 180 / math.Pi
	return []string{sentence(talker, "HDG", fmt.Sprintf(",%.1f,,,,", degrees))}
}

func deriveMWV(talker string, f map[string]interface{}) []string {
	speed, ok := asFloat(f["Wind Speed"])
	if !ok {
		return nil
	}
	angle, ok := asFloat(f["Wind Angle"])
	if !ok {
		return nil
	}
	reference := "R"
	if r, ok := f["Reference"].(string); ok && r == "True" {
		reference = "T"
	}
	degrees := angle * 180 / math.Pi
	return []string{sentence(talker, "MWV", fmt.Sprintf(",%.1f,%s,%.1f,N,A", degrees, reference, speed*1.94384))}
}

func deriveDBT(talker string, f map[string]interface{}) []string {
	depth, ok := asFloat(f["Depth"])
	if !ok {
		return nil
	}
	feet := depth * 3.28084
	fathoms := depth / 1.8288
	return []string{sentence(talker, "DBT", fmt.Sprintf(",%.1f,f,%.1f,M,%.1f,F", feet, depth, fathoms))}
}

func deriveVHW(talker string, f map[string]interface{}) []string {
	speed, ok := asFloat(f["Speed Water Referenced"])
	if !ok {
		return nil
	}
	knots := speed * 1.94384
	return []string{sentence(talker, "VHW", fmt.Sprintf(",,,,,%.1f,N,%.1f,K", knots, speed*3.6))}
}

func deriveRSA(talker string, f map[string]interface{}) []string {
	angle, ok := asFloat(f["Position"])
	if !ok {
		return nil
	}
	degrees := angle * 180 / math.Pi
	return []string{sentence(talker, "RSA", fmt.Sprintf(",%.1f,A,,V", degrees))}
}

func deriveGLL(talker string, f map[string]interface{}) []string {
	lat, latOK := asFloat(f["Latitude"])
	lon, lonOK := asFloat(f["Longitude"])
	if !latOK || !lonOK {
		return nil
	}
	latHemi := "N"
	if lat < 0 {
		lat, latHemi = -lat, "S"
	}
	lonHemi := "E"
	if lon < 0 {
		lon, lonHemi = -lon, "W"
	}
	return []string{sentence(talker, "GLL", fmt.Sprintf(",%s,%s,%s,%s,,A,A",
		formatDM(lat), latHemi, formatDMLon(lon), lonHemi))}
}

func formatDM(decimalDegrees float64) string {
	deg := math.Floor(decimalDegrees)
	min := (decimalDegrees - deg) * 60
	return fmt.Sprintf("%02d%07.4f", int(deg), min)
}

func formatDMLon(decimalDegrees float64) string {
	deg := math.Floor(decimalDegrees)
	min := (decimalDegrees - deg) * 60
	return fmt.Sprintf("%03d%07.4f", int(deg), min)
}

func deriveVTG(talker string, f map[string]interface{}) []string {
	cog, cogOK := asFloat(f["COG"])
	sog, sogOK := asFloat(f["SOG"])
	if !cogOK || !sogOK {
		return nil
	}
	degrees := cog * 180 / math.Pi
	knots := sog * 1.94384
	return []string{sentence(talker, "VTG", fmt.Sprintf(",%.1f,T,,M,%.1f,N,%.1f,K", degrees, knots, knots*1.852))}
}
