package rescale

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

type ServerConfig struct {
	SourceDir    string
	ThumbnailDir string
	AllowedExts  []string

	// Resizer creates the thumbnails, Mode is passed to it unchanged.
	Resizer ImageResizer
	Mode    int

	// Requests above these sizes are rejected. Zero selects
	// DefaultMaxDimension.
	MaxWidth  uint
	MaxHeight uint

	Logger hclog.Logger
}

type Server struct {
	conf    *ServerConfig
	handler http.Handler

	thumbnailMutex    sync.Mutex
	pendingThumbnails map[string][]chan error
}

func NewServer(conf ServerConfig) (*Server, error) {
	if conf.Logger == nil {
		conf.Logger = hclog.NewNullLogger()
	}
	if conf.Resizer == nil {
		return nil, fmt.Errorf("no image resizer configured")
	}
	if conf.MaxWidth == 0 {
		conf.MaxWidth = DefaultMaxDimension
	}
	if conf.MaxHeight == 0 {
		conf.MaxHeight = DefaultMaxDimension
	}

	s := &Server{
		conf:              &conf,
		pendingThumbnails: make(map[string][]chan error),
	}

	mux := http.NewServeMux()
	mux.Handle("/source/", s.sourceHandler())
	mux.Handle("/thumbnail/", s.thumbnailHandler())

	h := http.Handler(mux)
	h = s.slashRemover(h)
	s.handler = h
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) thumbnailHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			s.serveThumbnail(w, r)
			return
		}

		http.Error(w, "Error", http.StatusBadRequest)
	})
}

// thumbnail identifies a source key scaled into a width x height box.
type thumbnail struct {
	key    string
	width  uint
	height uint
}

func (t thumbnail) String() string {
	return fmt.Sprintf("%dx%d/%s", t.width, t.height, t.key)
}

var sizeRE *regexp.Regexp = regexp.MustCompile(`^([0-9]{0,5})x([0-9]{0,5})$`)

func (s *Server) parseThumbnail(p string) (thumbnail, error) {
	size, key, ok := strings.Cut(p, "/")
	if !ok {
		return thumbnail{}, fmt.Errorf("no size: %v", p)
	}
	m := sizeRE.FindStringSubmatch(size)
	if m == nil {
		return thumbnail{}, fmt.Errorf("invalid size: %v", size)
	}

	var t thumbnail
	if m[1] != "" {
		w, _ := strconv.ParseUint(m[1], 10, 32)
		t.width = uint(w)
	}
	if m[2] != "" {
		h, _ := strconv.ParseUint(m[2], 10, 32)
		t.height = uint(h)
	}
	if t.width == 0 && t.height == 0 {
		return thumbnail{}, fmt.Errorf("invalid size: %v", size)
	}
	if t.width > s.conf.MaxWidth || t.height > s.conf.MaxHeight {
		return thumbnail{}, fmt.Errorf("size too large: %v", size)
	}

	if err := s.validateKey(key); err != nil {
		return thumbnail{}, err
	}
	t.key = key
	return t, nil
}

func (s *Server) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	t, err := s.parseThumbnail(strings.TrimSpace(removePrefix(r.URL.Path, "/thumbnail/")))
	if err != nil {
		s.conf.Logger.Error("Invalid thumbnail", "error", err)
		http.Error(w, "Invalid thumbnail", http.StatusBadRequest)
		return
	}

	f, err := s.openThumbnail(t)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.conf.Logger.Error("Failed to open thumbnail", "thumbnail", t, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	s.serveFile(w, r, f)
}

func (s *Server) thumbnailPath(t thumbnail) string {
	return filepath.Join(s.conf.ThumbnailDir, keyFilepath(t.String()))
}

func (s *Server) openThumbnail(t thumbnail) (*os.File, error) {
	path := s.thumbnailPath(t)
	s.conf.Logger.Debug("Open", "path", path)
	f, err := os.Open(path)
	if (err != nil && !os.IsNotExist(err)) || err == nil {
		return f, err
	}

	key := t.String()
	s.thumbnailMutex.Lock()
	ch := make(chan error, 1)
	s.pendingThumbnails[key] = append(s.pendingThumbnails[key], ch)
	if len(s.pendingThumbnails[key]) == 1 {
		go s.createThumbnail(t, path)
	}
	s.thumbnailMutex.Unlock()

	err = <-ch
	if err != nil {
		return nil, err
	}
	s.conf.Logger.Debug("Open", "path", path)
	return os.Open(path)
}

func (s *Server) createThumbnail(t thumbnail, path string) {
	key := t.String()
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		s.sendThumbnailResult(key, err)
		return
	}
	if err == nil {
		s.sendThumbnailResult(key, nil)
		return
	}

	src := s.sourcePath(t.key)
	if _, err = os.Stat(src); err != nil {
		s.sendThumbnailResult(key, err)
		return
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0754)
	if err != nil {
		s.sendThumbnailResult(key, err)
		return
	}

	// the extension of the temporary file selects the output format
	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(path))
	start := time.Now()
	err = s.conf.Resizer.Resize(tmp, src, t.width, t.height, s.conf.Mode)
	if err != nil {
		os.Remove(tmp)
		s.sendThumbnailResult(key, fmt.Errorf("Failed to create thumbnail: %w", err))
		return
	}
	err = os.Rename(tmp, path)
	if err != nil {
		os.Remove(tmp)
		s.sendThumbnailResult(key, err)
		return
	}

	s.conf.Logger.Info("Thumbnail created", "thumbnail", key, "duration", time.Since(start))
	s.sendThumbnailResult(key, nil)
}

func (s *Server) sendThumbnailResult(key string, err error) {
	s.thumbnailMutex.Lock()
	defer s.thumbnailMutex.Unlock()

	for _, ch := range s.pendingThumbnails[key] {
		if err != nil {
			ch <- err
		}
		close(ch)
	}
	delete(s.pendingThumbnails, key)
}

func (s *Server) sourceHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" || r.Method == "HEAD" {
			s.serveSource(w, r)
			return
		}
		if r.Method == "PUT" {
			s.saveSource(w, r)
			return
		}

		http.Error(w, "Error", http.StatusBadRequest)
	})
}

func removePrefix(url, prefix string) string {
	return strings.Replace(url, prefix, "", 1)
}

func (s *Server) serveSource(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(removePrefix(r.URL.Path, "/source/"))
	err := s.validateKey(key)
	if err != nil {
		s.conf.Logger.Error("Invalid key", "error", err)
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	p := s.sourcePath(key)
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.conf.Logger.Error("Failed to open source", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	s.serveFile(w, r, f)
}

// serveFile answers GET and HEAD requests with the content of f.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, f *os.File) {
	fi, err := f.Stat()
	if err != nil {
		s.conf.Logger.Error("Failed to get file info", "path", f.Name(), "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	//w.Header().Set("cache-control", "public, max-age=1209600") // 2 Weeks = 1209600 Seconds

	if r.Method == "HEAD" {
		w.Header().Set("content-type", mime.TypeByExtension(filepath.Ext(fi.Name())))
		w.Header().Set("content-length", strconv.FormatInt(fi.Size(), 10))
		w.Header().Set("last-modified", fi.ModTime().UTC().Format(http.TimeFormat))
		w.WriteHeader(200)
		return
	}

	s.conf.Logger.Debug("Serve", "path", f.Name())
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *Server) sourcePath(key string) string {
	return filepath.Join(s.conf.SourceDir, keyFilepath(key))
}

func (s *Server) saveSource(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(removePrefix(r.URL.Path, "/source/"))
	err := s.validateKey(key)
	if err != nil {
		s.conf.Logger.Error("Invalid key", "error", err)
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	p := s.sourcePath(key)
	n, sum, err := s.storeSource(p, r.Body)
	if errors.Is(err, os.ErrExist) {
		http.Error(w, "Already exists", http.StatusConflict)
		return
	}
	if err != nil {
		s.conf.Logger.Error("Failed to store source", "path", p, "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	s.conf.Logger.Info("Source stored", "key", key, "size", n, "md5", sum)
	w.WriteHeader(200)
}

// storeSource writes body to path together with a path.md5 checksum file.
// The body is spooled into a temporary file next to path and only linked
// into place once it has been read completely, so a failed upload leaves
// nothing behind and an existing source is never replaced.
func (s *Server) storeSource(path string, body io.Reader) (int64, string, error) {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0754)
	if err != nil {
		return 0, "", err
	}
	if _, err = os.Lstat(path); err == nil {
		return 0, "", fmt.Errorf("%s: %w", path, os.ErrExist)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, "", err
	}
	defer os.Remove(tmp.Name())

	h := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, "", fmt.Errorf("read upload: %w", err)
	}
	sum := fmt.Sprintf("%x", h.Sum(nil))

	s.conf.Logger.Debug("Link source", "tmp", tmp.Name(), "path", path)
	err = os.Link(tmp.Name(), path)
	if err != nil {
		return n, "", err
	}

	pathMD5 := path + ".md5"
	s.conf.Logger.Debug("Write MD5 file", "path", pathMD5, "md5", sum)
	err = os.WriteFile(pathMD5, []byte(sum), 0644)
	if err != nil {
		os.Remove(path)
		return n, "", err
	}
	return n, sum, nil
}

func keyFilepath(key string) string {
	return filepath.FromSlash(key)
}

var keyRE *regexp.Regexp = regexp.MustCompile(`^[a-zA-Z0-9/._-]+$`)

func (s *Server) validateKey(key string) error {
	if !keyRE.MatchString(key) {
		return fmt.Errorf("invalid key: %v", key)
	}
	if path.Clean(key) != key || key == "." || key[0] == '/' || strings.Contains(key, "..") {
		return fmt.Errorf("invalid key: %v", key)
	}
	// dot files are reserved for uploads and thumbnails in progress
	if strings.HasPrefix(path.Base(key), ".") {
		return fmt.Errorf("invalid key: %v", key)
	}

	ext := path.Ext(key)
	if ext == "" {
		return fmt.Errorf("no ext: %v", key)
	}
	for _, e := range s.conf.AllowedExts {
		if strings.EqualFold(ext, e) {
			return nil
		}
	}
	return fmt.Errorf("invalid ext: %v", key)
}

func (s *Server) slashRemover(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Google treats URLs with trailing slash
		// and URLs without trailing slash separately and equally.
		// Prefer non-trailing slash URLs over trailing slash URLs.
		p := r.URL.Path
		if p != "/" && p[len(p)-1] == '/' {
			p = strings.TrimRight(p, "/")
			http.Redirect(w, r, p, 301)
			return
		}
		h.ServeHTTP(w, r)
	})
}
