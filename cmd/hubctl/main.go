// hubctl es el cliente de línea de comandos del hub: deploy, listado y
// administración de apps contra la API HTTP.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL string
	Session string
	HTTP    *http.Client
}

func (c *client) do(method, path string, body io.Reader, contentType string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Session != "" {
		req.AddCookie(&http.Cookie{Name: "hub_session", Value: c.Session})
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func (c *client) doJSON(method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	return c.do(method, path, body, "application/json")
}

func printJSON(b []byte) {
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		fmt.Println(string(b))
		return
	}
	fmt.Println(out.String())
}

func fail(status int, b []byte) error {
	return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(b)))
}

func main() {
	c := &client{HTTP: &http.Client{Timeout: 5 * time.Minute}}

	root := &cobra.Command{
		Use:          "hubctl",
		Short:        "Cliente CLI de InternalHub",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.BaseURL, "url", envOr("HUB_URL", "http://localhost:8080"), "URL base del hub")
	root.PersistentFlags().StringVar(&c.Session, "session", os.Getenv("HUB_SESSION"), "token de sesión (cookie hub_session)")

	root.AddCommand(
		cmdLogin(c),
		cmdDeploy(c),
		cmdList(c),
		cmdGet(c),
		cmdPublish(c),
		cmdDelete(c),
		cmdAccess(c),
		cmdAccessLog(c),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func cmdLogin(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Pide un magic link de acceso al hub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, b, err := c.doJSON(http.MethodPost, "/api/auth/magic-link",
				map[string]string{"email": args[0]})
			if err != nil {
				return err
			}
			if status != http.StatusAccepted {
				return fail(status, b)
			}
			printJSON(b)
			fmt.Fprintln(os.Stderr, "Revisá tu casilla y seguí el link; después copiá la cookie hub_session a HUB_SESSION.")
			return nil
		},
	}
}

func cmdDeploy(c *client) *cobra.Command {
	var name, description, app string
	cmd := &cobra.Command{
		Use:   "deploy <dir|bundle.zip>",
		Short: "Despliega un bundle (directorio o zip)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, contentType, err := buildUpload(args[0], name, description)
			if err != nil {
				return err
			}
			path := "/api/apps"
			wantStatus := http.StatusCreated
			if app != "" {
				path = "/api/apps/" + app + "/deploy"
				wantStatus = http.StatusOK
			}
			status, b, err := c.do(http.MethodPost, path, body, contentType)
			if err != nil {
				return err
			}
			if status != wantStatus {
				return fail(status, b)
			}
			printJSON(b)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "nombre de la app (default: nombre del directorio)")
	cmd.Flags().StringVar(&description, "description", "", "descripción")
	cmd.Flags().StringVar(&app, "app", "", "redesplegar sobre una app existente (slug o ID)")
	return cmd
}

func cmdList(c *client) *cobra.Command {
	var mine, starred bool
	var search, sort string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lista las apps visibles",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := make([]string, 0, 4)
			if mine {
				q = append(q, "mine=true")
			}
			if starred {
				q = append(q, "starred=true")
			}
			if search != "" {
				q = append(q, "q="+search)
			}
			if sort != "" {
				q = append(q, "sort="+sort)
			}
			path := "/api/apps"
			if len(q) > 0 {
				path += "?" + strings.Join(q, "&")
			}
			status, b, err := c.do(http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fail(status, b)
			}
			printJSON(b)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "sólo mis apps")
	cmd.Flags().BoolVar(&starred, "starred", false, "sólo favoritas")
	cmd.Flags().StringVarP(&search, "query", "q", "", "búsqueda por texto")
	cmd.Flags().StringVar(&sort, "sort", "", "orden: recent | name")
	return cmd
}

func cmdGet(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <app>",
		Short: "Muestra una app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, b, err := c.do(http.MethodGet, "/api/apps/"+args[0], nil, "")
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fail(status, b)
			}
			printJSON(b)
			return nil
		},
	}
}

func cmdPublish(c *client) *cobra.Command {
	var unpublish bool
	cmd := &cobra.Command{
		Use:   "publish <app>",
		Short: "Publica (o despublica) una app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := "published"
			if unpublish {
				st = "draft"
			}
			status, b, err := c.doJSON(http.MethodPatch, "/api/apps/"+args[0],
				map[string]string{"status": st})
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fail(status, b)
			}
			printJSON(b)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unpublish, "undo", false, "volver a draft")
	return cmd
}

func cmdDelete(c *client) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <app>",
		Short: "Elimina una app y sus archivos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("operación destructiva: repetir con --yes")
			}
			status, b, err := c.do(http.MethodDelete, "/api/apps/"+args[0], nil, "")
			if err != nil {
				return err
			}
			if status != http.StatusNoContent {
				return fail(status, b)
			}
			fmt.Println("eliminada")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirmar")
	return cmd
}

func cmdAccess(c *client) *cobra.Command {
	var accessType, password, domain string
	var emails []string
	cmd := &cobra.Command{
		Use:   "access <app>",
		Short: "Cambia el control de acceso de una app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"access_type": accessType}
			switch accessType {
			case "password":
				payload["access_password"] = password
			case "email_list":
				payload["access_emails"] = emails
			case "domain":
				payload["access_domain"] = domain
			case "public", "private":
			default:
				return fmt.Errorf("access type desconocido: %q", accessType)
			}
			status, b, err := c.doJSON(http.MethodPatch, "/api/apps/"+args[0], payload)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fail(status, b)
			}
			printJSON(b)
			return nil
		},
	}
	cmd.Flags().StringVar(&accessType, "type", "private", "public | private | password | email_list | domain")
	cmd.Flags().StringVar(&password, "password", "", "password del gate")
	cmd.Flags().StringSliceVar(&emails, "emails", nil, "lista de emails permitidos")
	cmd.Flags().StringVar(&domain, "domain", "", "dominio permitido")
	return cmd
}

func cmdAccessLog(c *client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "access-log <app>",
		Short: "Muestra los últimos accesos de una app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, b, err := c.do(http.MethodGet,
				fmt.Sprintf("/api/apps/%s/access-log?limit=%d", args[0], limit), nil, "")
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fail(status, b)
			}
			printJSON(b)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "cantidad de entradas")
	return cmd
}

// buildUpload arma el multipart del deploy. Un directorio se recorre
// completo (paths relativos incluidos); un archivo suelto va tal cual.
func buildUpload(target, name, description string) (io.Reader, string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, "", err
	}

	if name == "" {
		base := filepath.Base(target)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", name)
	if description != "" {
		_ = w.WriteField("description", description)
	}

	addFile := func(path, rel string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		part, err := w.CreateFormFile("files", filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		_, err = io.Copy(part, f)
		return err
	}

	if info.IsDir() {
		err = filepath.Walk(target, func(path string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return err
			}
			rel, err := filepath.Rel(target, path)
			if err != nil {
				return err
			}
			return addFile(path, rel)
		})
	} else {
		err = addFile(target, filepath.Base(target))
	}
	if err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
