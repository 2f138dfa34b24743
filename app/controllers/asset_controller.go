package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/docmill/docmill/internal/pkg/assets"
)

// AssetController serves ephemeral asset metadata and payloads on behalf of
// the transport layer.
type AssetController struct {
	Assets *assets.Store
}

// HandleGetAsset returns asset metadata if the asset is still alive.
func (ac *AssetController) HandleGetAsset(c *fiber.Ctx) error {
	asset, err := ac.Assets.Get(c.Params("id"), time.Now())
	if err != nil {
		return assetError(c, err)
	}
	return c.JSON(asset)
}

// HandleDownloadAsset streams the asset payload.
func (ac *AssetController) HandleDownloadAsset(c *fiber.Ctx) error {
	now := time.Now()
	asset, err := ac.Assets.Get(c.Params("id"), now)
	if err != nil {
		return assetError(c, err)
	}

	body, err := ac.Assets.Open(c.Context(), c.Params("id"), now)
	if err != nil {
		return assetError(c, err)
	}

	if asset.Type != "" {
		c.Set(fiber.HeaderContentType, asset.Type)
	}
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+asset.Name+"\"")
	return c.SendStream(body)
}

func assetError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, assets.ErrAssetExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "asset_expired", "message": "The file has expired"})
	case errors.Is(err, assets.ErrAssetNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No such file"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load file"})
	}
}
