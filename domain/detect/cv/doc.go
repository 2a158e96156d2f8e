// Package cv provides OpenCV-backed detectors (colour ranges and DNN
// object detection) and the rectangle grouping filter. It needs the OpenCV
// libraries at build time; importing it registers the "color" and "net"
// detector kinds and the "group_rectangles" filter with package detect.
package cv
