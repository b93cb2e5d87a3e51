package httpserver

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/internal/service"
	"github.com/Skotchmaster/temurun/internal/util"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

const productsPath = "/admin/products"

func imagesPath(productID uuid.UUID) string {
	return productsPath + "/" + productID.String() + "/images"
}

func (h *AdminHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.MaxPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Catalog.GetProducts(ctx, offset, limit)
	if err != nil {
		return httpError(l, "list_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":       items,
		"meta":       util.Meta(page, offset, limit, total),
		"flash":      flash(c),
		"csrf_token": csrfToken(c),
	})
}

func (h *AdminHTTP) UpdatePrice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_price")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return redirectErr(c, l, "update_price_error", productsPath, notFoundErr("Product not found"), "")
	}

	price, err := h.Catalog.UpdatePrice(ctx, id, c.FormValue("price"))
	if err != nil {
		return redirectErr(c, l, "update_price_error", productsPath, err, "Failed to update price")
	}

	l.Info("update_price_success", "product_id", id.String(), "price", price)
	return redirectOK(c, productsPath)
}

func (h *AdminHTTP) SetNew(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_new")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return redirectErr(c, l, "set_new_error", productsPath, notFoundErr("Product not found"), "")
	}

	next := strings.EqualFold(strings.TrimSpace(c.FormValue("next")), "true")
	if err := h.Catalog.SetNew(ctx, id, next); err != nil {
		return redirectErr(c, l, "set_new_error", productsPath, err, "Failed to update product")
	}

	l.Info("set_new_success", "product_id", id.String(), "is_new", next)
	return redirectOK(c, productsPath)
}

func (h *AdminHTTP) ListImages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_images")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("list_images_error", "status", 404, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	images, err := h.Catalog.ListImages(ctx, id)
	if err != nil {
		return httpError(l, "list_images_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"product_id": id,
		"data":       images,
		"flash":      flash(c),
		"csrf_token": csrfToken(c),
	})
}

func (h *AdminHTTP) UploadImages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.upload_images")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return redirectErr(c, l, "upload_images_error", productsPath, notFoundErr("Product not found"), "")
	}
	back := imagesPath(id)

	form, err := c.MultipartForm()
	if err != nil {
		return redirectErr(c, l, "upload_images_error", back, validationErr("Choose at least one image"), "")
	}

	headers := form.File["files"]
	uploads := make([]service.Upload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return redirectErr(c, l, "upload_images_error", back, err, "Failed to read upload")
		}
		opened = append(opened, f)
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Body: f})
	}

	n, err := h.Catalog.UploadImages(ctx, id, uploads)
	if err != nil {
		return redirectErr(c, l, "upload_images_error", back, err, "Failed to upload images")
	}

	l.Info("upload_images_success", "product_id", id.String(), "count", n)
	return redirectOK(c, back)
}

func (h *AdminHTTP) imageAction(c echo.Context, event string, fn func(productID, imageID uuid.UUID) error) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin."+event)

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return redirectErr(c, l, event+"_error", productsPath, notFoundErr("Product not found"), "")
	}
	back := imagesPath(productID)

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		return redirectErr(c, l, event+"_error", back, notFoundErr("Image not found"), "")
	}

	if err := fn(productID, imageID); err != nil {
		return redirectErr(c, l, event+"_error", back, err, "Failed to update images")
	}

	l.Info(event+"_success", "product_id", productID.String(), "image_id", imageID.String())
	return redirectOK(c, back)
}

func (h *AdminHTTP) DeleteImage(c echo.Context) error {
	return h.imageAction(c, "delete_image", func(pid, iid uuid.UUID) error {
		return h.Catalog.DeleteImage(c.Request().Context(), pid, iid)
	})
}

func (h *AdminHTTP) MoveImage(c echo.Context) error {
	dir := strings.ToLower(strings.TrimSpace(c.FormValue("dir")))
	return h.imageAction(c, "move_image", func(pid, iid uuid.UUID) error {
		return h.Catalog.MoveImage(c.Request().Context(), pid, iid, dir)
	})
}

func (h *AdminHTTP) SetCover(c echo.Context) error {
	return h.imageAction(c, "set_cover", func(pid, iid uuid.UUID) error {
		return h.Catalog.SetCover(c.Request().Context(), pid, iid)
	})
}

func (h *AdminHTTP) ReorderImages(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.reorder_images")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return redirectErr(c, l, "reorder_images_error", productsPath, notFoundErr("Product not found"), "")
	}
	back := imagesPath(id)

	if err := h.Catalog.ReorderImages(ctx, id, c.FormValue("ids")); err != nil {
		return redirectErr(c, l, "reorder_images_error", back, err, "Failed to reorder images")
	}

	l.Info("reorder_images_success", "product_id", id.String())
	return redirectOK(c, back)
}

func notFoundErr(msg string) error {
	return &service.UserError{Kind: service.ErrNotFound, Msg: msg}
}

func validationErr(msg string) error {
	return &service.UserError{Kind: service.ErrValidation, Msg: msg}
}
