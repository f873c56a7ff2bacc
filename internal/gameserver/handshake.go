package gameserver

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/cubeserver/internal/observability"
	"github.com/cory-johannsen/cubeserver/internal/protocol"
	"github.com/cory-johannsen/cubeserver/internal/text"
)

const (
	// ProtocolVersion is the only client protocol accepted for login.
	ProtocolVersion = protocol.ProtocolVersion
	// VersionName is advertised in the status response.
	VersionName = protocol.GameVersion

	statusSampleLimit = 12
)

func (s *Session) onHandshake(f protocol.Fields) error {
	s.clientVersion = f.Int32("protocolVersion")
	next := f.Int32("nextState")
	switch next {
	case protocol.NextStateStatus:
		s.setState(protocol.Status)
	case protocol.NextStateLogin:
		s.setState(protocol.Login)
	default:
		return fmt.Errorf("unknown next state %d: %w", next,
			&protocol.ProtocolStateError{State: protocol.Handshaking, Name: "Handshake"})
	}
	s.logger.Debug("handshake",
		zap.Int32("protocol_version", s.clientVersion),
		zap.String("server_address", f.String("serverAddress")),
	)
	return nil
}

type statusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type statusSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type statusPlayers struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []statusSample `json:"sample"`
}

type statusResponse struct {
	Version            statusVersion  `json:"version"`
	Players            statusPlayers  `json:"players"`
	Description        text.Component `json:"description"`
	EnforcesSecureChat bool           `json:"enforcesSecureChat"`
	PreviewsChat       bool           `json:"previewsChat"`
}

// statusDescription renders the server list description: the MOTD followed by
// the host readout.
func statusDescription(motd, cpuModel string, memTotal uint64) text.Component {
	var b text.Builder
	if motd != "" {
		b.Append(motd).Newline()
	}
	b.Append("CPU Info:", text.EffectBold, text.EffectYellow).
		Append(cpuModel, text.EffectRed).
		Newline().
		Append("Memory Info:", text.EffectBold, text.EffectYellow).
		Append(fmt.Sprintf("%.2f GB Total", float64(memTotal)/1024/1024/1024), text.EffectRed)
	return b.Component()
}

func (s *Session) onStatusRequest(protocol.Fields) error {
	ctx := context.Background()
	resp := statusResponse{
		Version: statusVersion{Name: VersionName, Protocol: s.clientVersion},
		Players: statusPlayers{
			Max:    s.srv.cfg.Server.MaxPlayers,
			Sample: []statusSample{},
		},
		Description: statusDescription(
			s.srv.cfg.Server.MOTD,
			s.srv.probe.CPUModel(ctx),
			s.srv.probe.MemoryTotal(ctx),
		),
	}
	for _, p := range s.srv.registry.Players() {
		if !p.Ready() {
			continue
		}
		resp.Players.Online++
		if len(resp.Players.Sample) < statusSampleLimit {
			resp.Players.Sample = append(resp.Players.Sample, statusSample{
				Name: p.Username(),
				ID:   p.UUID().String(),
			})
		}
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshalling status: %w", err)
	}
	return s.send("StatusResponse", protocol.Fields{"json": string(b)})
}

func (s *Session) onStatusPing(f protocol.Fields) error {
	return s.send("PongResponse", protocol.Fields{"payload": f.Int64("payload")})
}

func (s *Session) onLoginStart(f protocol.Fields) error {
	name := f.String("name")
	if s.clientVersion != ProtocolVersion {
		s.logger.Info("rejecting client version", zap.Int32("protocol_version", s.clientVersion))
		s.disconnect(text.Plain(fmt.Sprintf("Unsupported client, please use %s", VersionName)))
		return nil
	}
	if name == "" || len(name) > 16 {
		s.disconnect(text.Plain("Invalid username"))
		return nil
	}

	p := s.player
	id := protocol.OfflineUUID(name)
	p.SetUUID(id)
	p.Login(name)
	s.logger = s.logger.With(observability.PlayerFields(name, p.ID())...)
	s.logger.Info("player logged in", zap.Stringer("uuid", id))

	return s.send("LoginSuccess", protocol.Fields{
		"uuid":       id,
		"username":   name,
		"properties": 0,
	})
}

func (s *Session) onLoginAcknowledged(protocol.Fields) error {
	if !s.player.LoggedIn() {
		return fmt.Errorf("login acknowledged before login start")
	}
	s.setState(protocol.Configuration)
	return s.startConfiguration()
}
