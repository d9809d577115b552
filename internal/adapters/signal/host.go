package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/soundsync/internal/domain"
	"github.com/dkeye/soundsync/internal/proto"
)

func (ctl *Controller) handleTransferHost(cc *clientConn, p *proto.TransferHost) {
	target := domain.Identity(p.NewHostIdentity)
	err := ctl.Coord.TransferHost(cc.id, target)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, domain.ErrNotAuthorized):
			msg = "Only the current host can transfer host status"
		case errors.Is(err, domain.ErrUnknownTarget), errors.Is(err, domain.ErrSessionNotFound):
			msg = "User not found"
		case errors.Is(err, domain.ErrCrossGroupTransfer):
			msg = "Cannot transfer host to a user in a different group"
		default:
			msg = "Host transfer failed"
		}
		log.Warn().Err(err).Str("module", "signal").Str("identity", string(cc.id)).Str("target", string(target)).Msg("host transfer rejected")
		ctl.sendJSON(cc.conn, proto.HostTransferResult{
			Type:           proto.TypeHostTransferResult,
			Success:        false,
			PreviousHostID: string(cc.id),
			Error:          msg,
		})
		return
	}
	ctl.sendJSON(cc.conn, proto.HostTransferResult{
		Type:           proto.TypeHostTransferResult,
		Success:        true,
		PreviousHostID: string(cc.id),
		NewHostID:      string(target),
	})
}
