package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/digestus/internal/security/apikey"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func (c *client) run(method, path string, body []byte) error {
	status, out, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	c.print(status, out)
	if status >= 400 {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("DIGESTUS_ADMIN_URL", "http://localhost:8080")
		key     = envOr("DIGESTUS_ADMIN_KEY", "")
		out     = envOr("DIGESTUS_OUT", "text")
	)

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:   "digestusctl",
		Short: "CLI admin para Digestus (vía /v1/admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cl.BaseURL, cl.APIKey, cl.OutFormat = baseURL, key, out
			if cmd.Name() == "keygen" {
				return nil
			}
			if cl.APIKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env DIGESTUS_ADMIN_KEY)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "URL base del Admin API (env DIGESTUS_ADMIN_URL)")
	root.PersistentFlags().StringVar(&key, "admin-api-key", key, "API key del Admin API (env DIGESTUS_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	// ─── keygen (local) ───
	root.AddCommand(&cobra.Command{
		Use:   "keygen",
		Short: "Genera un admin API key y su hash bcrypt para la config",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, h, err := apikey.Generate(32)
			if err != nil {
				return err
			}
			fmt.Printf("api key:  %s\n", k)
			fmt.Printf("api_key_hash: %s\n", h)
			fmt.Println("\nGuardar el hash en config (admin.api_key_hash) o env ADMIN_API_KEY_HASH.")
			return nil
		},
	})

	// ─── teams ───
	teamsCmd := &cobra.Command{Use: "teams", Short: "Gestión de equipos"}

	teamsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lista los equipos activos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/teams", nil)
		},
	})

	teamsCmd.AddCommand(&cobra.Command{
		Use:   "get <slug>",
		Short: "Muestra un equipo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/teams/"+args[0], nil)
		},
	})

	var (
		teamName    string
		teamEmail   string
		teamTZ      string
		teamDays    []int
		remindersAt string
		digestAt    string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un equipo",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]any{
				"name":              teamName,
				"email":             teamEmail,
				"timezone":          teamTZ,
				"digest_days":       teamDays,
				"send_reminders_at": remindersAt,
				"send_digest_at":    digestAt,
			})
			if err != nil {
				return err
			}
			return cl.run("POST", "/v1/admin/teams", body)
		},
	}
	createCmd.Flags().StringVar(&teamName, "name", "", "Nombre del equipo (máx 25 chars)")
	createCmd.Flags().StringVar(&teamEmail, "email", "", "Casilla del equipo (from + inbound)")
	createCmd.Flags().StringVar(&teamTZ, "timezone", "UTC", "Timezone IANA")
	createCmd.Flags().IntSliceVar(&teamDays, "digest-days", []int{1, 2, 3, 4, 5}, "Días de envío (0=domingo … 6=sábado)")
	createCmd.Flags().StringVar(&remindersAt, "reminders-at", "09:00", "Hora local del reminder (HH:MM)")
	createCmd.Flags().StringVar(&digestAt, "digest-at", "17:00", "Hora local del digest (HH:MM)")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("email")
	teamsCmd.AddCommand(createCmd)

	// ─── members ───
	membersCmd := &cobra.Command{Use: "members", Short: "Gestión de miembros"}

	membersCmd.AddCommand(&cobra.Command{
		Use:   "list <team-slug>",
		Short: "Lista los miembros activos de un equipo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("GET", "/v1/admin/teams/"+args[0]+"/members", nil)
		},
	})

	var memberName, memberRole string
	addCmd := &cobra.Command{
		Use:   "add <team-slug> <email>",
		Short: "Agrega un miembro a un equipo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]any{
				"name": memberName, "email": args[1], "role": memberRole,
			})
			if err != nil {
				return err
			}
			return cl.run("POST", "/v1/admin/teams/"+args[0]+"/members", body)
		},
	}
	addCmd.Flags().StringVar(&memberName, "name", "", "Nombre para mostrar")
	addCmd.Flags().StringVar(&memberRole, "role", "member", "member | manager")
	membersCmd.AddCommand(addCmd)

	membersCmd.AddCommand(&cobra.Command{
		Use:   "remove <team-slug> <member-id>",
		Short: "Da de baja a un miembro",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("DELETE", "/v1/admin/teams/"+args[0]+"/members/"+args[1], nil)
		},
	})

	// ─── triggers y consultas ───
	var digestDate string
	var managersOnly bool
	triggerDigest := &cobra.Command{
		Use:   "send-digest <team-slug>",
		Short: "Encola el digest del equipo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]any{
				"date": digestDate, "managers_only": managersOnly,
			})
			if err != nil {
				return err
			}
			return cl.run("POST", "/v1/admin/teams/"+args[0]+"/digest", body)
		},
	}
	triggerDigest.Flags().StringVar(&digestDate, "date", "", "Fecha YYYY-MM-DD (default hoy)")
	triggerDigest.Flags().BoolVar(&managersOnly, "managers-only", false, "Solo a managers")

	triggerReminders := &cobra.Command{
		Use:   "send-reminders <team-slug>",
		Short: "Encola los recordatorios del equipo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.run("POST", "/v1/admin/teams/"+args[0]+"/reminders", nil)
		},
	}

	var updatesDate string
	updatesCmd := &cobra.Command{
		Use:   "updates <team-slug>",
		Short: "Muestra los updates de un equipo para una fecha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/admin/teams/" + args[0] + "/updates"
			if updatesDate != "" {
				path += "?date=" + updatesDate
			}
			return cl.run("GET", path, nil)
		},
	}
	updatesCmd.Flags().StringVar(&updatesDate, "date", "", "Fecha YYYY-MM-DD (default hoy)")

	root.AddCommand(teamsCmd, membersCmd, triggerDigest, triggerReminders, updatesCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
