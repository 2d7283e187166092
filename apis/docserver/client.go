// Package docserver is a client for the document server's REST API:
// documents, layers, annotations and flattened PDF export.
package docserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/responses"
)

// maxErrorBody caps how much of an error response ends up in HTTPError.Body
const maxErrorBody = 512

type Client struct {
	*http.Client // [Embedded]
	Conf         *Conf
}

func NewClient(httpClient *http.Client, conf *Conf) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{Client: httpClient, Conf: conf}
}

func (c *Client) documentPath(elems ...string) string {
	p := "/documents/" + url.PathEscape(c.Conf.DocumentID)
	for _, e := range elems {
		p += "/" + url.PathEscape(e)
	}
	return p
}

func (c *Client) newRequest(ctx context.Context, method string, endpoint string, body io.Reader, contentType string) (*http.Request, error) {
	upstrReq, err := http.NewRequestWithContext(ctx, method, c.Conf.Host+endpoint, body)
	if err != nil {
		return nil, err
	}
	upstrReq.Header.Set("Authorization", "Token token="+c.Conf.AuthToken)
	if contentType != "" {
		upstrReq.Header.Set("Content-Type", contentType)
	}
	return upstrReq, nil
}

// do sends the request. Non-2xx responses are closed and returned as *HTTPError.
// The caller is responsible for closing response.Body otherwise.
func (c *Client) do(upstrReq *http.Request) (*http.Response, error) {
	upstrRes, err := c.Do(upstrReq)
	if err != nil {
		return nil, err
	}
	if upstrRes.StatusCode >= 200 && upstrRes.StatusCode < 300 {
		return upstrRes, nil
	}
	defer closeBody(upstrRes)
	snippet, _ := io.ReadAll(io.LimitReader(upstrRes.Body, maxErrorBody))
	httpErr := &HTTPError{
		Method:     upstrReq.Method,
		URL:        upstrReq.URL.Path,
		StatusCode: upstrRes.StatusCode,
		Body:       string(bytes.TrimSpace(snippet)),
	}
	if msg, ok := responses.ParseMessage(snippet); ok {
		httpErr.Reason = msg.Text()
	}
	return nil, httpErr
}

// requestJSON sends payload (if not nil) as JSON and decodes the response into out (if not nil)
func (c *Client) requestJSON(ctx context.Context, method string, endpoint string, payload any, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payloadBytes)
		contentType = "application/json"
	}
	upstrReq, err := c.newRequest(ctx, method, endpoint, body, contentType)
	if err != nil {
		return err
	}
	upstrReq.Header.Set("Accept", "application/json")
	upstrRes, err := c.do(upstrReq)
	if err != nil {
		return err
	}
	defer closeBody(upstrRes)
	if out == nil {
		_, err = io.Copy(io.Discard, upstrRes.Body)
		return err
	}
	if err = json.NewDecoder(upstrRes.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, endpoint, err)
	}
	return nil
}

func (c *Client) requestMultipart(ctx context.Context, endpoint string, fill func(mw *multipart.Writer) error) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := fill(mw); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	upstrReq, err := c.newRequest(ctx, http.MethodPost, endpoint, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	upstrRes, err := c.do(upstrReq)
	if err != nil {
		return err
	}
	defer closeBody(upstrRes)
	_, err = io.Copy(io.Discard, upstrRes.Body)
	return err
}

// CreateDocument uploads pdf as the document Conf.DocumentID
func (c *Client) CreateDocument(ctx context.Context, title string, filename string, pdf io.Reader) error {
	return c.requestMultipart(ctx, "/documents", func(mw *multipart.Writer) error {
		if err := mw.WriteField("document_id", c.Conf.DocumentID); err != nil {
			return err
		}
		if err := mw.WriteField("title", title); err != nil {
			return err
		}
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, pdf)
		return err
	})
}

type createLayerRequestBody struct {
	Name            string `json:"name"`
	SourceLayerName string `json:"source_layer_name,omitempty"`
}

// CreateLayer creates an empty layer, or a copy of sourceLayer if given
func (c *Client) CreateLayer(ctx context.Context, name string, sourceLayer string) error {
	payload := createLayerRequestBody{Name: name, SourceLayerName: sourceLayer}
	return c.requestJSON(ctx, http.MethodPost, c.documentPath("layers"), payload, nil)
}

type PageInfo struct {
	PageIndex int     `json:"pageIndex"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

type DocumentInfo struct {
	Title     string     `json:"title"`
	PageCount int        `json:"pageCount"`
	Pages     []PageInfo `json:"pages"`
}

func (c *Client) DocumentInfo(ctx context.Context) (*DocumentInfo, error) {
	var envelope responses.Envelope[DocumentInfo]
	if err := c.requestJSON(ctx, http.MethodGet, c.documentPath("document_info"), nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// PageDimensions returns the size of the first page
func (c *Client) PageDimensions(ctx context.Context) (float64, float64, error) {
	info, err := c.DocumentInfo(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(info.Pages) == 0 {
		return 0, 0, ErrNoPages
	}
	return info.Pages[0].Width, info.Pages[0].Height, nil
}

func (c *Client) CreateAnnotation(ctx context.Context, layer string, a annotation.Annotation) error {
	return c.requestJSON(ctx, http.MethodPost, c.documentPath("layers", layer, "annotations"), a, nil)
}

// CreateImageAnnotation uploads the attachment together with the annotation.
// The attachment part is named after the annotation's imageAttachmentId.
func (c *Client) CreateImageAnnotation(ctx context.Context, layer string, a annotation.Annotation, attachment io.Reader) error {
	hash, _ := a.Content["imageAttachmentId"].(string)
	if hash == "" {
		return fmt.Errorf("annotation %q has no imageAttachmentId", a.ID)
	}
	annotationBytes, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.requestMultipart(ctx, c.documentPath("layers", layer, "annotations"), func(mw *multipart.Writer) error {
		if err := mw.WriteField("annotation", string(annotationBytes)); err != nil {
			return err
		}
		part, err := mw.CreateFormFile(hash, hash)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, attachment)
		return err
	})
}

func (c *Client) GetAnnotation(ctx context.Context, layer string, id string) (*annotation.Annotation, error) {
	var a annotation.Annotation
	if err := c.requestJSON(ctx, http.MethodGet, c.documentPath("layers", layer, "annotations", id), nil, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		a.ID = id
	}
	return &a, nil
}

// UpdateAnnotation reads the annotation, applies updates over its content key by key
// and writes it back. Keys not in updates keep their values.
func (c *Client) UpdateAnnotation(ctx context.Context, layer string, id string, updates map[string]any) error {
	current, err := c.GetAnnotation(ctx, layer, id)
	if err != nil {
		return err
	}
	payload := annotation.Annotation{ID: id, Content: current.Content.Merge(updates)}
	return c.requestJSON(ctx, http.MethodPut, c.documentPath("layers", layer, "annotations", id), payload, nil)
}

// ExportLayerPDF streams the flattened PDF of the document with layer applied into w
func (c *Client) ExportLayerPDF(ctx context.Context, layer string, w io.Writer) (int64, error) {
	upstrReq, err := c.newRequest(ctx, http.MethodGet, c.documentPath("layers", layer, "pdf")+"?flatten=true", nil, "")
	if err != nil {
		return 0, err
	}
	upstrReq.Header.Set("Accept", responses.ContentTypePDF)
	upstrRes, err := c.do(upstrReq)
	if err != nil {
		return 0, err
	}
	defer closeBody(upstrRes)
	return responses.CopyPDF(w, upstrRes)
}

func closeBody(res *http.Response) {
	if err := res.Body.Close(); err != nil {
		log.Printf("[WARN][DOCSERVER] %v", err)
	}
}
