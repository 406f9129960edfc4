package terminal

import (
	"context"
	"encoding/base64"

	"github.com/GriffinCanCode/ptyhost/internal/shared/id"
	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/shared/utils"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

func sizeParams(params map[string]interface{}) (int, int, error) {
	cols, err := optionalInt(params, "cols", terminal.DefaultCols)
	if err != nil {
		return 0, 0, err
	}
	rows, err := optionalInt(params, "rows", terminal.DefaultRows)
	if err != nil {
		return 0, 0, err
	}
	return cols, rows, nil
}

func (p *Provider) createSession(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	cols, rows, err := sizeParams(params)
	if err != nil {
		return nil, err
	}

	sessionID := optionalString(params, "session_id")
	if err := utils.ValidateID(sessionID, "session_id", false); err != nil {
		return nil, err
	}
	dir := optionalString(params, "working_directory")
	if err := utils.ValidatePath(dir, "working_directory"); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = id.NewSessionID().String()
	}

	req := terminal.CreateRequest{
		ID:      sessionID,
		Dir:     defaultDir(dir),
		Command: optionalString(params, "command"),
		Cols:    cols,
		Rows:    rows,
	}
	externalName, err := p.manager.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}

	info, err := p.manager.SessionInfo(req.ID)
	if err != nil {
		return nil, err
	}
	data := infoData(info)
	data["external_name"] = externalName
	return success(data)
}

func (p *Provider) attachSession(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	externalName, err := requireString(params, "external_name")
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateID(externalName, "external_name", true); err != nil {
		return nil, err
	}
	cols, rows, err := sizeParams(params)
	if err != nil {
		return nil, err
	}

	attached, err := p.manager.AttachSession(ctx, terminal.AttachRequest{
		ID:           sessionID,
		ExternalName: externalName,
		Dir:          defaultDir(optionalString(params, "working_directory")),
		Cols:         cols,
		Rows:         rows,
	})
	if err != nil {
		return nil, err
	}
	return success(map[string]interface{}{
		"session_id":    sessionID,
		"external_name": externalName,
		"attached":      attached,
	})
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	data, err := inputBytes(params)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInputSize(data); err != nil {
		return nil, err
	}

	if err := p.manager.Write(sessionID, data); err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"written": len(data)})
}

func (p *Provider) read(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}

	output, err := p.manager.ReadBuffered(sessionID)
	if err != nil {
		return nil, err
	}
	return success(map[string]interface{}{
		"output":        string(output),
		"output_base64": base64.StdEncoding.EncodeToString(output),
		"length":        len(output),
	})
}

func (p *Provider) resize(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	cols, err := requireInt(params, "cols")
	if err != nil {
		return nil, err
	}
	rows, err := requireInt(params, "rows")
	if err != nil {
		return nil, err
	}

	if err := p.manager.Resize(ctx, sessionID, cols, rows); err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"cols": cols, "rows": rows})
}

func (p *Provider) detach(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	if err := p.manager.DetachSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"detached": true})
}

func (p *Provider) close(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	code, err := p.manager.CloseSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{"closed": true, "exit_code": nil}
	if code != nil {
		data["exit_code"] = *code
	}
	return success(data)
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.manager.ListSessions()
	return success(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (p *Provider) isActive(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"active": p.manager.IsActive(ctx, sessionID)})
}

func (p *Provider) getSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := requireString(params, "session_id")
	if err != nil {
		return nil, err
	}
	info, err := p.manager.SessionInfo(sessionID)
	if err != nil {
		return nil, err
	}
	return success(infoData(info))
}

func infoData(info terminal.SessionInfo) map[string]interface{} {
	return map[string]interface{}{
		"session_id":        info.ID,
		"backend":           string(info.Backend),
		"external_name":     info.ExternalName,
		"working_directory": info.WorkingDirectory,
		"command":           info.Command,
		"cols":              info.Cols,
		"rows":              info.Rows,
		"created_at":        info.CreatedAt,
		"running":           info.Running,
	}
}
