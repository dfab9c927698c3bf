package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/HappyCodeDay/veyon"
	"github.com/HappyCodeDay/veyon/vauth"
	"github.com/HappyCodeDay/veyon/vdef"
	"github.com/HappyCodeDay/veyon/vstore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	mode := os.Args[1]
	args := os.Args[2:]

	var err error
	switch mode {
	case "apply":
		err = runApply(args)
	case "list":
		err = runList(args)
	case "createkeypair":
		err = runCreateKeyPair(args)
	case "importkey":
		err = runImportKey(args)
	case "deletekey":
		err = runDeleteKey(args)
	case "sign":
		err = runSign(args)
	case "verify":
		err = runVerify(args)
	case "info":
		err = runInfo(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: veyon-cli <mode> [options]

Modes:
  apply          Merge a configuration file into the local configuration and apply it
  list           List the current configuration as key=value lines
  createkeypair  Generate and install a DSA key pair for a role
  importkey      Validate and install a public key file for a role
  deletekey      Remove a role's key pair
  sign           Sign a message file with a role's private key
  verify         Verify a signature file against a role's public key
  info           Show per-role key status

Run 'veyon-cli <mode> -h' for mode-specific options.
`)
}

// commonFlags holds the options shared by every mode.
type commonFlags struct {
	silent   bool
	destDir  string
	keys     string
	config   string
	registry string
}

func (cf *commonFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&cf.silent, "silent", false, "Suppress interactive prompts, log only")
	fs.StringVar(&cf.destDir, "destdir", "", "Destination directory override (packaging scope)")
	fs.StringVar(&cf.keys, "keys", "", "Override the key base directory")
	fs.StringVar(&cf.config, "config", "", "Override the configuration file path")
	fs.StringVar(&cf.registry, "registry", "", "Override the trust registry database path")
}

func (cf *commonFlags) options() veyon.Options {
	scope := vdef.ScopeSystem()
	if cf.destDir != "" {
		scope = vdef.ScopeDestDir(cf.destDir)
	}
	return veyon.Options{
		Silent:       cf.silent,
		Scope:        scope,
		KeyBaseDir:   cf.keys,
		ConfigPath:   cf.config,
		RegistryPath: cf.registry,
	}
}

func parseRoleArg(name string) (vdef.Role, error) {
	if name == "" {
		return vdef.RoleNone, fmt.Errorf("missing -role")
	}
	return vdef.ParseRole(name)
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	file := fs.String("file", "", "Configuration file to merge and apply")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("missing -file")
	}

	tree, err := vstore.NewLocalStoreWithPath(*file).Load()
	if err != nil {
		return err
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	return c.ApplyConfiguration(veyon.ConfigFromTree(tree))
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	return c.ListConfiguration(os.Stdout)
}

func runCreateKeyPair(args []string) error {
	fs := flag.NewFlagSet("createkeypair", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	roleName := fs.String("role", "", "Role owning the key pair (teacher, admin, supporter, other)")
	bits := fs.Int("bits", vdef.DefaultKeyBits, "Key strength in bits (1024, 2048, 3072)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	role, err := parseRoleArg(*roleName)
	if err != nil {
		return err
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	return c.CreateKeyPair(role, *bits)
}

func runImportKey(args []string) error {
	fs := flag.NewFlagSet("importkey", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	roleName := fs.String("role", "", "Role to install the key for")
	file := fs.String("file", "", "Public key file to import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	role, err := parseRoleArg(*roleName)
	if err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("missing -file")
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	return c.ImportPublicKey(role, *file)
}

func runDeleteKey(args []string) error {
	fs := flag.NewFlagSet("deletekey", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	roleName := fs.String("role", "", "Role whose key pair is removed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	role, err := parseRoleArg(*roleName)
	if err != nil {
		return err
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	return c.DeleteKey(role)
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	roleName := fs.String("role", "", "Role whose private key signs the message")
	message := fs.String("message", "", "File containing the message to sign")
	out := fs.String("out", "", "File to write the signature to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	role, err := parseRoleArg(*roleName)
	if err != nil {
		return err
	}
	if *message == "" || *out == "" {
		return fmt.Errorf("missing -message or -out")
	}

	opts := cf.options()
	var store *vauth.KeyStore
	if opts.KeyBaseDir != "" {
		store = vauth.NewKeyStoreWithBase(opts.KeyBaseDir)
	} else {
		store = vauth.NewKeyStore()
	}

	priv, err := vdef.LoadPrivateKey(store.ResolvePath(role, vdef.KeyPrivate, opts.Scope))
	if err != nil {
		return err
	}
	msg, err := os.ReadFile(*message)
	if err != nil {
		return err
	}
	sig, err := priv.Sign(msg)
	if err != nil {
		return err
	}
	return os.WriteFile(*out, sig, 0o600)
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	roleName := fs.String("role", "", "Role whose public key verifies the signature")
	message := fs.String("message", "", "File containing the signed message")
	signature := fs.String("signature", "", "File containing the signature")
	if err := fs.Parse(args); err != nil {
		return err
	}
	role, err := parseRoleArg(*roleName)
	if err != nil {
		return err
	}
	if *message == "" || *signature == "" {
		return fmt.Errorf("missing -message or -signature")
	}

	msg, err := os.ReadFile(*message)
	if err != nil {
		return err
	}
	sig, err := os.ReadFile(*signature)
	if err != nil {
		return err
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	result := c.Verify(role, vauth.Credential{Message: msg, Signature: sig})
	if !result.Accepted {
		return fmt.Errorf("rejected: %s", result.Reason)
	}
	fmt.Println("accepted")
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := veyon.New(cf.options())
	if err != nil {
		return err
	}
	defer c.Close()

	for _, role := range vdef.AllRoles() {
		if !c.HasUsableKey(role) {
			fmt.Printf("%-10s no usable key\n", role)
			continue
		}
		pub, err := c.CurrentPublicKey(role)
		if err != nil {
			fmt.Printf("%-10s no usable key\n", role)
			continue
		}
		fmt.Printf("%-10s %d bits  %s\n", role, pub.Bits(), pub.Fingerprint())
	}
	return nil
}
