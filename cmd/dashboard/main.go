package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pingboard/internal/apiclient"
	"pingboard/internal/auth"
	"pingboard/internal/dashboard"
	"pingboard/internal/inventory"
	"pingboard/internal/localstore"
	"pingboard/internal/models"
	"pingboard/internal/session"
)

const version = "1.0.0"

func main() {
	serverURL := flag.String("server", "http://localhost:7000", "Pingboard server URL")
	storePath := flag.String("store", "pingboard-local.db", "Local state database")
	interval := flag.Duration("interval", dashboard.DefaultRefreshInterval, "Dashboard refresh interval")
	rememberMe := flag.Bool("remember", false, "Keep the session across restarts")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pingboard-dashboard v%s\n", version)
		os.Exit(0)
	}

	log.SetFlags(log.Ltime | log.Ldate)

	store, err := localstore.Open(*storePath)
	if err != nil {
		log.Fatalf("❌ Failed to open local store: %v", err)
	}
	defer store.Close()

	creds := auth.NewCredentialStore(store)
	if err := creds.BootstrapIfEmpty(); err != nil {
		log.Fatalf("❌ Failed to initialize accounts: %v", err)
	}
	attempts := auth.NewAttemptTracker(store, creds)
	authenticator := auth.NewAuthenticator(creds, attempts)

	stdin := bufio.NewReader(os.Stdin)
	sess := promptLogin(stdin, authenticator)

	guard := session.NewGuard(store)
	guard.OnLogout(func(reason session.Reason) {
		fmt.Printf("\n🔒 Session ended (%s), please log in again\n", reason)
		os.Exit(0)
	})
	if err := guard.Establish(*sess, *rememberMe); err != nil {
		log.Fatalf("❌ Failed to establish session: %v", err)
	}
	log.Printf("🔓 Logged in as %s (%s)", sess.Username, sess.Role)

	client := apiclient.NewClient(*serverURL, guard.Cookie)
	cache := inventory.NewCache(store, client)
	ctrl := dashboard.NewController(cache, client, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	devices := cache.Load(ctx)
	log.Printf("✓ Loaded %d devices", len(devices))
	ctrl.Refresh(ctx)
	ctrl.StartPolling(ctx, *interval)
	defer ctrl.Stop()

	app := &app{
		stdin:    stdin,
		guard:    guard,
		creds:    creds,
		attempts: attempts,
		client:   client,
		cache:    cache,
		ctrl:     ctrl,
		sess:     sess,
	}
	app.loop(ctx)
}

func promptLogin(stdin *bufio.Reader, authenticator *auth.Authenticator) *models.Session {
	for {
		username := prompt(stdin, "Username: ")
		password := prompt(stdin, "Password: ")

		sess, err := authenticator.Login(username, password)
		if err == nil {
			return sess
		}

		var locked *auth.LockedError
		if errors.As(err, &locked) {
			fmt.Printf("🚫 Account locked, try again in %d minutes\n", locked.RemainingMinutes)
			continue
		}
		fmt.Println("⚠️ Invalid username or password")
	}
}

func prompt(stdin *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return strings.TrimSpace(line)
}

type app struct {
	stdin    *bufio.Reader
	guard    *session.Guard
	creds    *auth.CredentialStore
	attempts *auth.AttemptTracker
	client   *apiclient.Client
	cache    *inventory.Cache
	ctrl     *dashboard.Controller
	sess     *models.Session

	filter string
	sortBy dashboard.SortField
	desc   bool
}

func (a *app) loop(ctx context.Context) {
	fmt.Println("Type 'help' for commands.")
	for {
		line := prompt(a.stdin, "> ")
		if line == "" {
			continue
		}
		a.guard.Activity()
		if !a.guard.IsAuthenticated() {
			return
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			a.printHelp()
		case "devices", "ls":
			a.printDevices()
		case "refresh":
			if !a.ctrl.Refresh(ctx) {
				fmt.Println("refresh already in progress")
			}
			a.printDevices()
		case "find":
			a.filter = strings.Join(args, " ")
			a.printDevices()
		case "sort":
			a.setSort(args)
			a.printDevices()
		case "categories":
			for _, c := range a.cache.Categories() {
				fmt.Println(c)
			}
		case "add":
			a.addDevice(ctx, args)
		case "edit":
			a.editDevice(ctx, args)
		case "remove", "rm":
			a.removeDevice(ctx, args)
		case "dark":
			on := !a.ctrl.DarkMode()
			a.ctrl.SetDarkMode(on)
			fmt.Printf("dark mode: %v\n", on)
		case "export":
			a.exportLog(ctx, args)
		case "logs":
			a.printLogs(ctx)
		case "email":
			a.printEmailSettings(ctx)
		case "testmail":
			if err := a.client.SendTestEmail(ctx); err != nil {
				fmt.Printf("⚠️ Test email failed: %v\n", err)
			} else {
				fmt.Println("✓ Test email sent")
			}
		case "passwd":
			a.changePassword(ctx)
		case "locked":
			a.printLocked()
		case "unlock":
			a.unlock(args)
		case "stats":
			a.printStats()
		case "hide", "show":
			if len(args) == 0 {
				fmt.Printf("usage: %s <widget>\n", cmd)
				continue
			}
			a.ctrl.SetWidgetVisible(args[0], cmd == "show")
		case "logout", "quit", "exit":
			a.guard.Logout()
			fmt.Println("🔒 Logged out")
			return
		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
	}
}

func (a *app) printHelp() {
	fmt.Print(`Commands:
  devices            list devices with live status
  refresh            force a refresh now
  find <text>        filter by name or IP (empty to clear)
  sort <field> [desc]  sort by name, ip, category or bandwidth
  categories         list device categories
  add <name> <ip> <category> <sensors> [http_path]
                     sensors comma-separated: Ping,Http,Https,Bandwidth
  edit <name|id> <field> <value>
                     update a device field
  remove <name|id>   remove a device
  dark               toggle dark mode
  export [csv] [start] [end]  download the monitoring log
  logs               show recent log entries
  email              show email settings
  testmail           send a test email
  passwd             change your password
  locked             list locked accounts (admin)
  unlock <user>      unlock an account (admin)
  stats              dashboard statistics (admin)
  hide|show <widget> toggle a stats widget
  quit               log out and exit
`)
}

func (a *app) printDevices() {
	devices := a.ctrl.Devices()
	if a.filter != "" {
		devices = dashboard.Filter(devices, a.filter)
	}
	if a.sortBy != "" {
		dashboard.Sort(devices, a.sortBy, a.desc)
	}
	if len(devices) == 0 {
		fmt.Println("no devices")
		return
	}
	fmt.Printf("%-24s %-16s %-12s %-6s %-6s %s\n", "NAME", "IP", "CATEGORY", "PING", "HTTP", "BANDWIDTH")
	for _, d := range devices {
		fmt.Printf("%-24s %-16s %-12s %-6s %-6s %s\n",
			d.Name, d.IP, d.Category,
			statusGlyph(d.PingStatus), statusGlyph(d.HTTPStatus), bandwidthText(d.BandwidthUsage))
	}
}

func statusGlyph(s *bool) string {
	switch {
	case s == nil:
		return "-"
	case *s:
		return "✓"
	default:
		return "✗"
	}
}

func bandwidthText(b *float64) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f Mbps", *b)
}

func (a *app) setSort(args []string) {
	if len(args) == 0 {
		a.sortBy, a.desc = "", false
		return
	}
	a.sortBy = dashboard.SortField(args[0])
	a.desc = len(args) > 1 && args[1] == "desc"
}

func (a *app) addDevice(ctx context.Context, args []string) {
	if len(args) < 4 {
		fmt.Println("usage: add <name> <ip> <category> <sensors> [http_path]")
		return
	}
	dev := models.Device{
		Name:     args[0],
		IP:       args[1],
		Category: args[2],
	}
	for _, s := range strings.Split(args[3], ",") {
		dev.Sensors = append(dev.Sensors, models.SensorType(s))
	}
	if len(args) > 4 {
		dev.HTTPPath = args[4]
	}
	if dev.NeedsHTTPPath() && dev.HTTPPath == "" {
		fmt.Println("⚠️ Http/Https sensors need an http_path")
		return
	}

	res := a.cache.Add(ctx, dev)
	switch {
	case res.LocalOnly:
		fmt.Println("⚠️ Server unreachable, device saved locally")
	case res.OK:
		fmt.Printf("✓ Device added: %s\n", dev.Name)
	default:
		fmt.Println("⚠️ Failed to add device")
	}
}

func (a *app) editDevice(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Println("usage: edit <name|id> <field> <value>   (fields: name, ip, category, http_path)")
		return
	}
	ref, field, value := args[0], args[1], strings.Join(args[2:], " ")

	var dev *models.Device
	for _, d := range a.cache.Devices() {
		if d.ID == ref || d.Name == ref {
			found := d
			dev = &found
			break
		}
	}
	if dev == nil {
		fmt.Println("⚠️ Device not found")
		return
	}

	switch field {
	case "name":
		dev.Name = value
	case "ip":
		dev.IP = value
	case "category":
		dev.Category = value
	case "http_path":
		dev.HTTPPath = value
	default:
		fmt.Printf("unknown field %q\n", field)
		return
	}

	target := dev.ID
	if target == "" {
		target = ref
	}
	if err := a.client.UpdateDevice(ctx, target, *dev); err != nil {
		fmt.Printf("⚠️ Update failed: %v\n", err)
		return
	}
	a.cache.Synchronize(ctx)
	fmt.Println("✓ Device updated")
}

func (a *app) removeDevice(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: remove <name|id>")
		return
	}
	res := a.cache.Remove(ctx, strings.Join(args, " "))
	switch {
	case res.LocalOnly:
		fmt.Println("⚠️ Server unreachable, removed locally")
	case res.OK:
		fmt.Println("✓ Device removed")
	default:
		fmt.Println("⚠️ Device not found")
	}
}

func (a *app) exportLog(ctx context.Context, args []string) {
	var filter apiclient.ExportLogFilter
	if len(args) > 0 && args[0] == "csv" {
		filter.Format = "csv"
		args = args[1:]
	}
	if len(args) > 0 {
		filter.StartDate = args[0]
	}
	if len(args) > 1 {
		filter.EndDate = args[1]
	}
	data, err := a.client.ExportLog(ctx, filter)
	if err != nil {
		fmt.Printf("⚠️ Export failed: %v\n", err)
		return
	}
	ext := "txt"
	if filter.Format == "csv" {
		ext = "csv"
	}
	name := fmt.Sprintf("monitoring_log_%s.%s", time.Now().Format("20060102_150405"), ext)
	if err := os.WriteFile(name, data, 0o644); err != nil {
		fmt.Printf("⚠️ Write failed: %v\n", err)
		return
	}
	fmt.Printf("✓ Exported to %s\n", name)
}

func (a *app) printLogs(ctx context.Context) {
	entries, err := a.client.GetLogsJSON(ctx)
	if err != nil {
		fmt.Printf("⚠️ Failed to fetch logs: %v\n", err)
		return
	}
	if len(entries) > 20 {
		entries = entries[len(entries)-20:]
	}
	for _, e := range entries {
		marker := " "
		if e.Down {
			marker = "✗"
		}
		fmt.Printf("%s %s  %s (%s)  Ping: %s  HTTP: %s  Bandwidth: %s\n",
			marker, e.Timestamp, e.Device, e.IP, e.Ping, e.HTTP, e.Bandwidth)
	}
}

func (a *app) printEmailSettings(ctx context.Context) {
	settings, err := a.client.GetEmailSettings(ctx)
	if err != nil {
		fmt.Printf("⚠️ Failed to fetch settings: %v\n", err)
		return
	}
	fmt.Printf("SMTP server: %s:%d\nFrom: %s\nTo: %s\n",
		settings.SMTPServer, settings.SMTPPort, settings.FromEmail, settings.ToEmail)
}

func (a *app) changePassword(ctx context.Context) {
	newPass := prompt(a.stdin, "New password: ")
	confirm := prompt(a.stdin, "Confirm password: ")
	if newPass != confirm {
		fmt.Println("⚠️ Passwords do not match")
		return
	}
	if !auth.ValidatePassword(newPass) {
		fmt.Printf("⚠️ Password too weak (%s)\n", auth.StrengthLabel(auth.PasswordStrength(newPass)))
		return
	}

	hash := auth.HashPassword(newPass)
	if err := a.creds.UpdatePasswordHash(a.sess.Username, hash); err != nil {
		fmt.Printf("⚠️ Failed to update local credential: %v\n", err)
		return
	}
	if err := a.client.UpdatePassword(ctx, hash); err != nil {
		fmt.Printf("⚠️ Server update failed: %v\n", err)
		return
	}
	fmt.Println("✓ Password updated")
}

func (a *app) printLocked() {
	if a.sess.Role != models.RoleAdmin {
		fmt.Println("⚠️ Admin only")
		return
	}
	locked := a.attempts.ListLocked()
	if len(locked) == 0 {
		fmt.Println("no locked accounts")
		return
	}
	for _, l := range locked {
		fmt.Printf("🚫 %s (%s): %d attempts, unlocks in %d minutes\n",
			l.Username, l.Role, l.Attempts, l.RemainingMinutes)
	}
}

func (a *app) unlock(args []string) {
	if a.sess.Role != models.RoleAdmin {
		fmt.Println("⚠️ Admin only")
		return
	}
	if len(args) == 0 {
		fmt.Println("usage: unlock <user>")
		return
	}
	if err := a.attempts.Unlock(args[0]); err != nil {
		fmt.Printf("⚠️ Unlock failed: %v\n", err)
		return
	}
	fmt.Printf("🔓 Account unlocked: %s\n", args[0])
}

func (a *app) printStats() {
	if a.sess.Role != models.RoleAdmin {
		fmt.Println("⚠️ Admin only")
		return
	}
	users := a.creds.List()
	locked := a.attempts.ListLocked()

	if a.ctrl.WidgetVisible("accountStatusGraph") {
		printSeries("Accounts", dashboard.AccountStatusSeries(len(users), len(locked)))
	}
	if a.ctrl.WidgetVisible("userRoleGraph") {
		printSeries("Roles", dashboard.RoleDistribution(users))
	}
	if a.ctrl.WidgetVisible("loginRateGraph") {
		printSeries("Failed logins (7 days)", dashboard.LoginAttemptSeries(a.attempts.Attempts(), time.Now()))
	}
	if a.ctrl.WidgetVisible("bandwidthGraph") {
		printSeries("Bandwidth (Mbps)", dashboard.BandwidthSeries(a.ctrl.Devices()))
	}
}

func printSeries(title string, s dashboard.Series) {
	fmt.Println(title + ":")
	for i, label := range s.Labels {
		fmt.Printf("  %-12s %.2f\n", label, s.Data[i])
	}
}
