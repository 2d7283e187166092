package docserver

import (
	"fmt"
	"os"
	"strings"
)

type Conf struct {
	Host           string `json:"host"`            // API base URL, e.g. http://localhost:5000/api
	AuthToken      string `json:"auth_token"`      // sent as `Token token=<AuthToken>`
	DocumentID     string `json:"document_id"`     // the invoice document
	TemplateLayer  string `json:"template_layer"`  // layer cloned for every invoice
	TimeoutSeconds int    `json:"timeout_seconds"` // per request. 0 = no timeout
}

func DefaultConf() Conf {
	return Conf{
		DocumentID:     "invoice",
		TemplateLayer:  "invoice-template",
		TimeoutSeconds: 30,
	}
}

// ApplyEnv overrides Host and AuthToken from SERVER_PORT and SERVER_API_AUTH_TOKEN if set
func (c *Conf) ApplyEnv() {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Host = fmt.Sprintf("http://localhost:%s/api", port)
	}
	if token := os.Getenv("SERVER_API_AUTH_TOKEN"); token != "" {
		c.AuthToken = token
	}
	c.Host = strings.TrimRight(c.Host, "/")
}

func (c *Conf) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("docserver: host not configured")
	case c.AuthToken == "":
		return fmt.Errorf("docserver: auth token not configured")
	case c.DocumentID == "":
		return fmt.Errorf("docserver: document id not configured")
	case c.TemplateLayer == "":
		return fmt.Errorf("docserver: template layer not configured")
	}
	return nil
}
